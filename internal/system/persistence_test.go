package system

import (
	"context"
	"errors"
	"testing"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	"github.com/l1jgo/simkernel/internal/persist"
)

type memJournal struct {
	batches [][]persist.JournalEntry
	fail    error
}

func (m *memJournal) WriteJournal(_ context.Context, entries []persist.JournalEntry) error {
	if m.fail != nil {
		return m.fail
	}
	m.batches = append(m.batches, entries)
	return nil
}

type memSaver struct {
	docs []*persist.LevelDocument
}

func (m *memSaver) Save(_ context.Context, doc *persist.LevelDocument) error {
	m.docs = append(m.docs, doc)
	return nil
}

func TestJournalBatchesRegionAndFaultEvents(t *testing.T) {
	s := ecs.NewScene(ecs.Options{})
	s.ID = "lvl"
	ball := spawn(t, s, "ball", component.NewTransform(vmath.Vec3{}))
	spawnRegion(t, s, "zone", vmath.Vec3{}, 0)

	w := &memJournal{}
	j := NewJournalSystem(s, w, nil, 2)
	rs := NewRegionSystem(s, nil)

	rs.Update(0)
	j.Update(0)
	if len(w.batches) != 0 || j.Pending() != 1 {
		t.Fatalf("flushed early: batches %d pending %d", len(w.batches), j.Pending())
	}

	ball.Transform().Position = vmath.V(10, 0, 0)
	rs.Update(0)
	event.Publish(s.Bus(), event.ScriptFault{EntityID: "ball", Stage: "runtime", Err: errors.New("boom"), Step: 2})
	j.Update(0)

	if len(w.batches) != 1 {
		t.Fatalf("batches %d", len(w.batches))
	}
	got := w.batches[0]
	want := []persist.JournalEntry{
		{LevelID: "lvl", Step: 1, Kind: "region_enter", EntityID: "ball", SubjectID: "zone"},
		{LevelID: "lvl", Step: 2, Kind: "region_exit", EntityID: "ball", SubjectID: "zone"},
		{LevelID: "lvl", Step: 2, Kind: "script_fault", EntityID: "ball", SubjectID: "runtime", Detail: "boom"},
	}
	if len(got) != len(want) {
		t.Fatalf("entries %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if j.Pending() != 0 {
		t.Errorf("pending after flush %d", j.Pending())
	}
}

func TestJournalKeepsEntriesOnWriteFailure(t *testing.T) {
	s := ecs.NewScene(ecs.Options{})
	w := &memJournal{fail: errors.New("db down")}
	j := NewJournalSystem(s, w, nil, 1)

	event.Publish(s.Bus(), event.RegionEnter{EntityID: "a", RegionID: "r", Step: 1})
	j.Update(0)
	if j.Pending() != 1 {
		t.Fatalf("pending %d", j.Pending())
	}

	w.fail = nil
	if err := j.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.batches) != 1 || len(w.batches[0]) != 1 {
		t.Errorf("batches %+v", w.batches)
	}

	j.Close()
	event.Publish(s.Bus(), event.RegionEnter{EntityID: "a", RegionID: "r", Step: 2})
	if j.Pending() != 0 {
		t.Error("closed journal still recording")
	}
}

func TestPersistenceAutosaves(t *testing.T) {
	s := ecs.NewScene(ecs.Options{Name: "demo"})
	s.ID = "demo"
	spawn(t, s, "a", component.NewTransform(vmath.V(1, 2, 3)))

	saver := &memSaver{}
	ps := NewPersistenceSystem(s, saver, nil, 3)
	for i := 0; i < 7; i++ {
		ps.Update(0)
	}
	if len(saver.docs) != 2 {
		t.Fatalf("saves %d", len(saver.docs))
	}
	doc := saver.docs[0]
	if doc.ID != "demo" || len(doc.Entities) != 1 || doc.Entities[0].ID != "a" {
		t.Errorf("snapshot %+v", doc)
	}

	off := &memSaver{}
	disabled := NewPersistenceSystem(s, off, nil, 0)
	for i := 0; i < 10; i++ {
		disabled.Update(0)
	}
	if err := disabled.SaveNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(off.docs) != 1 {
		t.Errorf("interval 0 saves %d", len(off.docs))
	}
}
