package ecs

// Registry tracks the side stores attached to a scene and supports bulk
// cleanup on entity destroy.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{stores: make([]Removable, 0, 8)}
}

func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// Unregister detaches a store, e.g. when a system is dropped from a scene.
func (r *Registry) Unregister(store Removable) {
	for i, s := range r.stores {
		if s == store {
			r.stores = append(r.stores[:i], r.stores[i+1:]...)
			return
		}
	}
}

// RemoveAll clears the given entity from every registered store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
