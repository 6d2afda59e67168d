package backend

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gogpu/shader/gpucore"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// SoftwareBackend is an in-memory backend.
// It validates descriptors and tracks every live object, which makes it the
// backend of choice for tests and for hosts without a GPU.
type SoftwareBackend struct {
	closed atomic.Bool

	modules   *gpucore.Registry[gpucore.ShaderModuleDesc]
	layouts   *gpucore.Registry[gpucore.BindGroupLayoutDesc]
	pipelines *gpucore.Registry[gpucore.PipelineLayoutDesc]
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() (gpucore.Backend, error) {
		return NewSoftwareBackend(), nil
	})
}

// NewSoftwareBackend creates a new in-memory backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{
		modules:   gpucore.NewRegistry[gpucore.ShaderModuleDesc](),
		layouts:   gpucore.NewRegistry[gpucore.BindGroupLayoutDesc](),
		pipelines: gpucore.NewRegistry[gpucore.PipelineLayoutDesc](),
	}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// CreateShaderModule stores a copy of desc. SPIR-V input must start with
// the SPIR-V magic number; WGSL input is accepted as is.
func (b *SoftwareBackend) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, ErrClosed
	}
	if desc == nil {
		return gpucore.InvalidHandle, fmt.Errorf("%w: nil shader module descriptor", ErrInvalidDescriptor)
	}
	switch {
	case len(desc.SPIRV) > 0:
		if desc.SPIRV[0] != spirvMagic {
			return gpucore.InvalidHandle, fmt.Errorf("%w: %s: bad SPIR-V magic 0x%08x",
				ErrInvalidDescriptor, desc.Label, desc.SPIRV[0])
		}
	case desc.WGSL == "":
		return gpucore.InvalidHandle, fmt.Errorf("%w: %s: empty shader module", ErrInvalidDescriptor, desc.Label)
	}

	stored := *desc
	stored.SPIRV = slices.Clone(desc.SPIRV)
	return b.modules.Insert(stored), nil
}

// DestroyShaderModule releases a shader module.
func (b *SoftwareBackend) DestroyShaderModule(h gpucore.Handle) error {
	_, err := b.modules.Remove(h)
	return err
}

// CreateBindGroupLayout stores a copy of desc. Entries must have unique
// binding indices and a known binding type.
func (b *SoftwareBackend) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, ErrClosed
	}
	if desc == nil {
		return gpucore.InvalidHandle, fmt.Errorf("%w: nil bind group layout descriptor", ErrInvalidDescriptor)
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return gpucore.InvalidHandle, fmt.Errorf("%w: %s: duplicate binding %d",
				ErrInvalidDescriptor, desc.Label, e.Binding)
		}
		seen[e.Binding] = true
		if e.Type < gpucore.BindingTypeUniformBuffer || e.Type > gpucore.BindingTypeStorageTexture {
			return gpucore.InvalidHandle, fmt.Errorf("%w: %s: binding %d has type %v",
				ErrInvalidDescriptor, desc.Label, e.Binding, e.Type)
		}
	}

	stored := *desc
	stored.Entries = slices.Clone(desc.Entries)
	return b.layouts.Insert(stored), nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (b *SoftwareBackend) DestroyBindGroupLayout(h gpucore.Handle) error {
	_, err := b.layouts.Remove(h)
	return err
}

// CreatePipelineLayout stores a copy of desc. Every referenced bind group
// layout must be alive.
func (b *SoftwareBackend) CreatePipelineLayout(desc *gpucore.PipelineLayoutDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, ErrClosed
	}
	if desc == nil {
		return gpucore.InvalidHandle, fmt.Errorf("%w: nil pipeline layout descriptor", ErrInvalidDescriptor)
	}
	for i, h := range desc.BindGroupLayouts {
		if _, err := b.layouts.Get(h); err != nil {
			return gpucore.InvalidHandle, fmt.Errorf("%w: %s: set %d: %w", ErrInvalidDescriptor, desc.Label, i, err)
		}
	}

	stored := *desc
	stored.BindGroupLayouts = slices.Clone(desc.BindGroupLayouts)
	return b.pipelines.Insert(stored), nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (b *SoftwareBackend) DestroyPipelineLayout(h gpucore.Handle) error {
	_, err := b.pipelines.Remove(h)
	return err
}

// Close marks the backend closed. Further creations fail with ErrClosed;
// destroying objects that are still alive keeps working so owners can
// finish teardown.
func (b *SoftwareBackend) Close() {
	b.closed.Store(true)
}

// ShaderModule returns the descriptor a live shader module was created with.
func (b *SoftwareBackend) ShaderModule(h gpucore.Handle) (gpucore.ShaderModuleDesc, error) {
	return b.modules.Get(h)
}

// BindGroupLayout returns the descriptor a live bind group layout was created with.
func (b *SoftwareBackend) BindGroupLayout(h gpucore.Handle) (gpucore.BindGroupLayoutDesc, error) {
	return b.layouts.Get(h)
}

// PipelineLayout returns the descriptor a live pipeline layout was created with.
func (b *SoftwareBackend) PipelineLayout(h gpucore.Handle) (gpucore.PipelineLayoutDesc, error) {
	return b.pipelines.Get(h)
}

// LiveCounts is the number of live objects per kind.
type LiveCounts struct {
	ShaderModules    int
	BindGroupLayouts int
	PipelineLayouts  int
}

// Total returns the number of live objects of all kinds.
func (c LiveCounts) Total() int {
	return c.ShaderModules + c.BindGroupLayouts + c.PipelineLayouts
}

// Live returns the current live object counts.
func (b *SoftwareBackend) Live() LiveCounts {
	return LiveCounts{
		ShaderModules:    b.modules.Len(),
		BindGroupLayouts: b.layouts.Len(),
		PipelineLayouts:  b.pipelines.Len(),
	}
}

// Compile-time interface check.
var _ gpucore.Backend = (*SoftwareBackend)(nil)
