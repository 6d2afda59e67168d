package gpucore

import "errors"

// Registry errors.
var (
	// ErrInvalidHandle is returned for InvalidHandle.
	ErrInvalidHandle = errors.New("gpucore: invalid handle")

	// ErrStaleHandle is returned for a handle whose object was already
	// destroyed, or that was never issued by this registry.
	ErrStaleHandle = errors.New("gpucore: stale handle")
)

// Backend abstracts over the object model of a GPU backend.
//
// The device service compiles and reflects shaders itself and only asks
// the backend for the objects a shader owns.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a handle twice returns ErrStaleHandle and has no other effect
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "vulkan").
	Name() string

	// CreateShaderModule creates a shader module from a compiled stage.
	CreateShaderModule(desc *ShaderModuleDesc) (Handle, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(h Handle) error

	// CreateBindGroupLayout creates a bind group layout.
	// Bind group layouts describe the structure of resource bindings of one set.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (Handle, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(h Handle) error

	// CreatePipelineLayout creates a pipeline layout from bind group layouts.
	CreatePipelineLayout(desc *PipelineLayoutDesc) (Handle, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(h Handle) error

	// Close releases the backend itself. Objects still alive are leaked
	// and reported by the implementation.
	Close()
}
