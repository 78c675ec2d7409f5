package component

import "fmt"

// Kind discriminates the component variants. An entity holds at most one
// component per Kind.
type Kind uint8

const (
	KindTransform Kind = iota
	KindMeshRenderer
	KindCamera
	KindLight
	KindPhysics
	KindRegion
	KindLogic

	NumKinds = int(KindLogic) + 1
)

var kindNames = [NumKinds]string{
	KindTransform:    "Transform",
	KindMeshRenderer: "MeshRenderer",
	KindCamera:       "Camera",
	KindLight:        "Light",
	KindPhysics:      "Physics",
	KindRegion:       "Region",
	KindLogic:        "Logic",
}

func (k Kind) String() string {
	if int(k) < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a document type name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	// Older editor documents used "Mesh" for the renderer component.
	if s == "Mesh" {
		return KindMeshRenderer, nil
	}
	return 0, fmt.Errorf("unknown component type %q", s)
}

// Component is the closed set of component variants. Kind must not
// dereference its receiver so that ecs.Get can call it on a nil pointer.
type Component interface {
	Kind() Kind
	sealed()
}

// Optional lifecycle hooks. The owning entity invokes them on state changes.
type (
	Initializer interface{ OnInitialize() }
	Activator   interface{ OnActivate() }
	Disabler    interface{ OnDisable() }
	Destroyer   interface{ OnDestroy() }
)

func (*Transform) Kind() Kind    { return KindTransform }
func (*MeshRenderer) Kind() Kind { return KindMeshRenderer }
func (*Camera) Kind() Kind       { return KindCamera }
func (*Light) Kind() Kind        { return KindLight }
func (*Physics) Kind() Kind      { return KindPhysics }
func (*Region) Kind() Kind       { return KindRegion }
func (*Logic) Kind() Kind        { return KindLogic }

func (*Transform) sealed()    {}
func (*MeshRenderer) sealed() {}
func (*Camera) sealed()       {}
func (*Light) sealed()        {}
func (*Physics) sealed()      {}
func (*Region) sealed()       {}
func (*Logic) sealed()        {}
