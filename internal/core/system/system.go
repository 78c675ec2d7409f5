package system

// Phase defines execution ordering within a single fixed step.
type Phase int

const (
	PhaseRegion  Phase = iota // 0: region membership + effective properties
	PhaseLogic                // 1: per-entity behaviours
	PhasePhysics              // 2: integration + floor constraint
	PhasePersist              // 3: journal flush
	PhaseCleanup              // 4: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseRegion:
		return "region"
	case PhaseLogic:
		return "logic"
	case PhasePhysics:
		return "physics"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every simulation system implements. dt is the
// fixed step in seconds.
type System interface {
	Phase() Phase
	Update(dt float64)
}
