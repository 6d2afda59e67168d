package gpucore

import "sync"

// Registry maps handles to backend objects.
//
// Slots are reused after removal; each reuse bumps the slot generation so
// a handle to a removed object never resolves to its successor.
//
// Registry is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []registrySlot[T]
	free  []uint32
	live  int
}

type registrySlot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores v and returns its handle.
func (r *Registry[T]) Insert(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, registrySlot[T]{})
	}
	s := &r.slots[idx]
	s.value = v
	s.live = true
	r.live++
	return makeHandle(idx, s.gen)
}

// Get returns the object for h.
func (r *Registry[T]) Get(h Handle) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Remove deletes the object for h and returns it.
// Removing the same handle twice fails with ErrStaleHandle.
func (r *Registry[T]) Remove(h Handle) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	s, err := r.lookup(h)
	if err != nil {
		return zero, err
	}
	v := s.value
	s.value = zero
	s.live = false
	s.gen++
	r.live--
	idx, _ := h.slot()
	r.free = append(r.free, idx)
	return v, nil
}

// Len returns the number of live objects.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Each calls fn for every live object in slot order.
func (r *Registry[T]) Each(fn func(Handle, T)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			fn(makeHandle(uint32(i), s.gen), s.value)
		}
	}
}

// Caller must hold r.mu.
func (r *Registry[T]) lookup(h Handle) (*registrySlot[T], error) {
	idx, ok := h.slot()
	if !ok {
		return nil, ErrInvalidHandle
	}
	if int(idx) >= len(r.slots) {
		return nil, ErrStaleHandle
	}
	s := &r.slots[idx]
	if !s.live || s.gen != h.generation() {
		return nil, ErrStaleHandle
	}
	return s, nil
}
