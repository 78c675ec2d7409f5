package event

// RegionEnter fires once when an entity's position enters a region volume.
type RegionEnter struct {
	EntityID string
	RegionID string
	Step     uint64
}

// RegionExit fires once when an entity leaves a region volume it was inside
// on the previous step.
type RegionExit struct {
	EntityID string
	RegionID string
	Step     uint64
}

// ScriptFault reports a recovered behaviour failure. Stage is "compile" or
// "runtime".
type ScriptFault struct {
	EntityID string
	Stage    string
	Err      error
	Step     uint64
}
