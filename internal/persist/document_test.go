package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/vmath"
)

func buildScene(t *testing.T) *ecs.Scene {
	t.Helper()
	s := ecs.NewScene(ecs.Options{Name: "demo", Seed: 42})
	s.ID = "demo"
	s.Vars["score"] = 3.0

	ball, err := s.CreateEntity("ball")
	if err != nil {
		t.Fatal(err)
	}
	ball.Name = "Ball"
	ball.Vars["bounces"] = 2.0
	for _, c := range []component.Component{
		component.NewTransform(vmath.V(0, 5, 0)),
		component.NewMeshRenderer("sphere", vmath.MustHex("#ff0000")),
		component.NewPhysics(),
		&component.Logic{Source: "entity:translate(0, 0, 0)"},
	} {
		if err := ball.Add(c); err != nil {
			t.Fatal(err)
		}
	}

	zone, _ := s.CreateEntity("zone")
	_ = zone.Add(component.NewTransform(vmath.V(0, 2, 0)))
	_ = zone.Add(component.NewRegion(2, vmath.V(4, 4, 4),
		component.Modifier{Property: "gravity", Value: vmath.Vector(vmath.V(0, 2, 0)), BlendMode: vmath.Override},
		component.Modifier{Property: "mass", Value: vmath.Scalar(2), BlendMode: vmath.Multiply},
	))

	cam, _ := s.CreateEntity("cam")
	_ = cam.Add(&component.Camera{FOV: 60, Near: 0.1, Far: 100, Primary: true})

	for _, id := range s.IDs() {
		e, _ := s.Entity(id)
		if err := e.Activate(); err != nil {
			t.Fatal(err)
		}
	}
	_ = cam.Disable()

	// Derived state that must not be persisted.
	ball.Physics().EffectiveGravity = vmath.V(0, 2, 0)
	ball.SetEffectiveProperties(map[string]vmath.Value{"gravity": vmath.Vector(vmath.V(0, 2, 0))})
	return s
}

func checkRestored(t *testing.T, s *ecs.Scene) {
	t.Helper()
	if got := strings.Join(s.IDs(), ","); got != "ball,zone,cam" {
		t.Fatalf("ids = %s", got)
	}
	if s.Seed() != 42 || s.Name != "demo" || s.ID != "demo" {
		t.Errorf("scene header: %q %q %d", s.ID, s.Name, s.Seed())
	}

	ball, _ := s.Entity("ball")
	if ball.State() != ecs.Active || ball.Name != "Ball" {
		t.Errorf("ball: state %s name %q", ball.State(), ball.Name)
	}
	if ball.Transform().Position != vmath.V(0, 5, 0) {
		t.Errorf("ball position %v", ball.Transform().Position)
	}
	p := ball.Physics()
	if p.BaseGravity != component.DefaultGravity || p.EffectiveGravity != component.DefaultGravity {
		t.Errorf("ball gravity base %v effective %v", p.BaseGravity, p.EffectiveGravity)
	}
	if len(ball.EffectiveProperties()) != 0 {
		t.Errorf("effective properties leaked: %v", ball.EffectiveProperties())
	}
	mr, ok := ecs.Get[*component.MeshRenderer](ball)
	if !ok || mr.BaseColor.Hex() != "#ff0000" || mr.Color != mr.BaseColor {
		t.Errorf("mesh renderer %+v", mr)
	}
	kinds := []component.Kind{}
	for _, c := range ball.Components() {
		kinds = append(kinds, c.Kind())
	}
	want := []component.Kind{component.KindTransform, component.KindMeshRenderer, component.KindPhysics, component.KindLogic}
	if len(kinds) != len(want) {
		t.Fatalf("ball kinds %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("ball kind[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	zone, _ := s.Entity("zone")
	r, ok := ecs.Get[*component.Region](zone)
	if !ok || r.Priority != 2 || len(r.Modifiers) != 2 {
		t.Fatalf("region %+v", r)
	}
	if r.Modifiers[1].BlendMode != vmath.Multiply || r.Modifiers[1].Value.AsScalar() != 2 {
		t.Errorf("mass modifier %+v", r.Modifiers[1])
	}
	if r.Modifiers[0].Value.Kind != vmath.KindVector || r.Modifiers[0].Value.AsVec() != vmath.V(0, 2, 0) {
		t.Errorf("gravity modifier %+v", r.Modifiers[0])
	}

	cam, _ := s.Entity("cam")
	if cam.State() != ecs.Disabled {
		t.Errorf("cam state %s", cam.State())
	}
}

func TestRoundTripJSON(t *testing.T) {
	doc := Snapshot(buildScene(t))
	data, err := Encode(doc, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, derived := range []string{"EffectiveGravity", "effective"} {
		if strings.Contains(text, derived) {
			t.Errorf("derived field %q in document:\n%s", derived, text)
		}
	}
	if !strings.Contains(text, `"specVersion": "1.1"`) {
		t.Errorf("missing spec version:\n%s", text)
	}

	back, err := Decode(data, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Restore(back, nil)
	if err != nil {
		t.Fatal(err)
	}
	checkRestored(t, s)
	if v, _ := s.Vars["score"].(float64); v != 3 {
		t.Errorf("scene vars %v", s.Vars)
	}
}

func TestRoundTripYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.yaml")
	if err := SaveFile(path, Snapshot(buildScene(t))); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Restore(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	checkRestored(t, s)
}

func TestDecodeAppliesComponentDefaults(t *testing.T) {
	doc, err := Decode([]byte(`{
  "id": "min",
  "entities": [
    {"id": "a", "components": [
      {"type": "Transform", "transform": {"position": {"x": 1, "y": 2, "z": 3}}},
      {"type": "Physics", "physics": {}}
    ]}
  ]
}`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Restore(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.Entity("a")
	if a.Transform().Scale != vmath.One() {
		t.Errorf("scale default %v", a.Transform().Scale)
	}
	p := a.Physics()
	if p.Mass != 1 || !p.UseGravity || p.BaseGravity != component.DefaultGravity {
		t.Errorf("physics defaults %+v", p)
	}
}

func TestRestoreRejectsBadDocuments(t *testing.T) {
	entity := func(comps ...ComponentDocument) EntityDocument {
		return EntityDocument{ID: "a", Components: comps}
	}
	cases := []struct {
		name string
		doc  *LevelDocument
	}{
		{"duplicate id", &LevelDocument{Entities: []EntityDocument{entity(), entity()}}},
		{"unknown type", &LevelDocument{Entities: []EntityDocument{entity(ComponentDocument{Type: "Sound"})}}},
		{"missing body", &LevelDocument{Entities: []EntityDocument{entity(ComponentDocument{Type: "Physics"})}}},
		{"duplicate kind", &LevelDocument{Entities: []EntityDocument{entity(
			ComponentDocument{Type: "Logic", Logic: &component.Logic{}},
			ComponentDocument{Type: "Logic", Logic: &component.Logic{}},
		)}}},
	}
	for _, tc := range cases {
		if _, err := Restore(tc.doc, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	for path, want := range map[string]Format{"a.json": FormatJSON, "b.YML": FormatYAML, "c.yaml": FormatYAML} {
		if got, err := FormatForPath(path); err != nil || got != want {
			t.Errorf("%s: %v %v", path, got, err)
		}
	}
	if _, err := FormatForPath("level.toml"); err == nil {
		t.Error("expected error for .toml")
	}
}
