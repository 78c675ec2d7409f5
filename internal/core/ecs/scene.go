package ecs

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/l1jgo/simkernel/internal/core/event"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const SpecVersion = "1.1"

// Options configures a new Scene. Zero values fall back to defaults.
type Options struct {
	Name         string
	Seed         int64
	Gravity      *vmath.Vec3
	TimeScale    float64
	AmbientColor vmath.Color
	Log          *zap.Logger
}

// Scene is the unit of load/unload. It owns every entity in an arena of
// generation-checked slots, the side-store registry, the event bus and the
// level-wide parameters.
type Scene struct {
	ID           string
	Name         string
	Gravity      vmath.Vec3
	TimeScale    float64
	AmbientColor vmath.Color
	// Vars is the global variable store shared with scripts.
	Vars map[string]any

	seed    int64
	rng     *rand.Rand
	entropy *ulid.MonotonicEntropy

	pool     *EntityPool
	slots    []*Entity
	byID     map[string]EntityID
	order    []EntityID
	registry *Registry
	bus      *event.Bus

	destroyQueue []string
	disposed     bool
	log          *zap.Logger
}

func NewScene(opts Options) *Scene {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	gravity := vmath.V(0, -9.81, 0)
	if opts.Gravity != nil {
		gravity = *opts.Gravity
	}
	ts := opts.TimeScale
	if ts <= 0 {
		ts = 1
	}
	return &Scene{
		Name:         opts.Name,
		Gravity:      gravity,
		TimeScale:    ts,
		AmbientColor: opts.AmbientColor,
		Vars:         make(map[string]any),
		seed:         opts.Seed,
		rng:          rand.New(rand.NewSource(opts.Seed)),
		entropy:      ulid.Monotonic(rand.New(rand.NewSource(opts.Seed^0x5eed)), 0),
		pool:         NewEntityPool(),
		slots:        make([]*Entity, 0, 256),
		byID:         make(map[string]EntityID, 256),
		order:        make([]EntityID, 0, 256),
		registry:     NewRegistry(),
		bus:          event.NewBus(log),
		destroyQueue: make([]string, 0, 16),
		log:          log,
	}
}

func (s *Scene) Bus() *event.Bus { return s.bus }
func (s *Scene) Registry() *Registry { return s.registry }
func (s *Scene) Seed() int64 { return s.seed }

// Rand is the scene's deterministic random source. Same seed, same inputs,
// same sequence.
func (s *Scene) Rand() *rand.Rand { return s.rng }

func (s *Scene) Len() int { return len(s.order) }

// CreateEntity allocates a Created entity under id.
func (s *Scene) CreateEntity(id string) (*Entity, error) {
	if s.disposed {
		return nil, fmt.Errorf("create %q: scene disposed: %w", id, ErrInvalidLifecycleTransition)
	}
	if id == "" {
		return nil, fmt.Errorf("create entity: empty id: %w", ErrInvalidLifecycleTransition)
	}
	if _, exists := s.byID[id]; exists {
		return nil, fmt.Errorf("create %q: %w: %w", id, ErrDuplicateEntityID, ErrInvalidLifecycleTransition)
	}
	h := s.pool.Create()
	e := &Entity{
		id:     id,
		handle: h,
		state:  Created,
		scene:  s,
		Vars:   make(map[string]any),
	}
	idx := int(h.Index())
	for len(s.slots) <= idx {
		s.slots = append(s.slots, nil)
	}
	s.slots[idx] = e
	s.byID[id] = h
	s.order = append(s.order, h)
	return e, nil
}

// Spawn creates an entity under a freshly generated ULID.
func (s *Scene) Spawn() (*Entity, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	return s.CreateEntity(id)
}

// Entity resolves a live entity by id.
func (s *Scene) Entity(id string) (*Entity, bool) {
	h, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.Lookup(h)
}

// Lookup resolves a handle. Stale handles of destroyed entities never resolve,
// even after their slot was reused.
func (s *Scene) Lookup(h EntityID) (*Entity, bool) {
	if !s.pool.Alive(h) {
		return nil, false
	}
	e := s.slots[h.Index()]
	return e, e != nil
}

// IDs returns entity ids in creation order.
func (s *Scene) IDs() []string {
	out := make([]string, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, s.slots[h.Index()].id)
	}
	return out
}

// Each visits every live entity in creation order. It walks a snapshot, so fn
// may create or destroy entities; entities destroyed during the walk are
// skipped.
func (s *Scene) Each(fn func(*Entity)) {
	for _, h := range slices.Clone(s.order) {
		if e, ok := s.Lookup(h); ok {
			fn(e)
		}
	}
}

// EachActive is Each restricted to Active entities.
func (s *Scene) EachActive(fn func(*Entity)) {
	for _, h := range slices.Clone(s.order) {
		if e, ok := s.Lookup(h); ok && e.state == Active {
			fn(e)
		}
	}
}

// Destroy tears the entity down immediately: component hooks run once, every
// registered side store drops its entry, and the slot returns to the free
// list.
func (s *Scene) Destroy(id string) error {
	h, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("destroy %q: %w", id, ErrInvalidLifecycleTransition)
	}
	e := s.slots[h.Index()]
	e.destroy()
	s.registry.RemoveAll(h)
	s.pool.Release(h)
	s.slots[h.Index()] = nil
	delete(s.byID, id)
	if i := slices.Index(s.order, h); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.log.Debug("entity destroyed", zap.String("entity", id))
	return nil
}

// MarkForDestruction queues an entity for end-of-step cleanup. Scripts use
// this so that a step never observes a half-destroyed scene.
func (s *Scene) MarkForDestruction(id string) {
	s.destroyQueue = append(s.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities. Ids already gone are skipped.
func (s *Scene) FlushDestroyQueue() int {
	n := 0
	for _, id := range s.destroyQueue {
		if _, ok := s.byID[id]; !ok {
			continue
		}
		if err := s.Destroy(id); err == nil {
			n++
		}
	}
	s.destroyQueue = s.destroyQueue[:0]
	return n
}

// Dispose destroys every entity. The scene rejects new entities afterwards.
func (s *Scene) Dispose() {
	for _, id := range s.IDs() {
		_ = s.Destroy(id)
	}
	s.destroyQueue = s.destroyQueue[:0]
	s.disposed = true
}
