package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/shader/gpucore"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	// Vulkan > Software (Software is the fallback).
	backendPriority = []string{BackendVulkan, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a backend by name.
// Returns ErrBackendNotAvailable if no such backend is registered.
func Open(name string) (gpucore.Backend, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	b, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return b, nil
}

// Default opens the best available backend based on priority.
// Priority order: vulkan > software, then any other registered backend.
// A backend whose factory fails is skipped; the failures are joined into
// the returned error when nothing opens.
func Default() (gpucore.Backend, error) {
	registryMu.RLock()
	order := slices.Clone(backendPriority)
	var rest []string
	for name := range factories {
		if !slices.Contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()

	slices.Sort(rest)
	order = append(order, rest...)

	var errs []error
	for _, name := range order {
		if !IsRegistered(name) {
			continue
		}
		b, err := Open(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return b, nil
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, errors.Join(errs...)
}

// MustDefault returns the default backend or panics.
func MustDefault() gpucore.Backend {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}
