package ecs

// Removable is implemented by every per-entity side store so the Registry
// can purge an entity's derived data when it is destroyed.
type Removable interface {
	Remove(id EntityID)
}

// Store is a typed side table keyed by entity handle. Systems keep their
// derived per-entity state (membership caches, compiled behaviours) here
// rather than on the components, so nothing derived ever reaches a document.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, 64)}
}

func (s *Store[T]) Set(id EntityID, v *T) { s.data[id] = v }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	v, ok := s.data[id]
	return v, ok
}

func (s *Store[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int { return len(s.data) }

func (s *Store[T]) Clear() { clear(s.data) }
