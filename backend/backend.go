package backend

import (
	"errors"

	"github.com/gogpu/shader/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or could not be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrClosed is returned by a backend used after Close.
	ErrClosed = errors.New("backend: closed")

	// ErrInvalidDescriptor is returned for a nil or malformed descriptor.
	ErrInvalidDescriptor = errors.New("backend: invalid descriptor")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the in-memory backend.
	BackendSoftware = "software"
	// BackendVulkan is the name of the Vulkan backend (gogpu/wgpu HAL).
	BackendVulkan = "vulkan"
)

// Factory opens a new backend instance.
type Factory func() (gpucore.Backend, error)
