// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/shader/backend"
	"github.com/gogpu/shader/gpucore"
)

// Errors.
var (
	// ErrNoAdapter is returned when the Vulkan instance exposes no adapter.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrNotHALProvider is returned by NewFromProvider for a provider that
	// does not expose its HAL device.
	ErrNotHALProvider = errors.New("wgpu: provider does not expose HAL types")

	// ErrUnsupportedBinding is returned for a layout entry this backend
	// cannot express.
	ErrUnsupportedBinding = errors.New("wgpu: unsupported binding")
)

// init registers the Vulkan backend on package import.
func init() {
	backend.Register(backend.BackendVulkan, func() (gpucore.Backend, error) {
		return New()
	})
}

// halProvider is implemented by hosts that share their HAL device
// (gogpu's DeviceProvider does).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Backend implements gpucore.Backend on a gogpu/wgpu HAL device.
//
// Thread Safety: Backend is safe for concurrent use from multiple goroutines.
// Handle bookkeeping is done by gpucore.Registry; HAL calls are serialized
// by a mutex.
type Backend struct {
	mu       sync.Mutex
	instance hal.Instance // nil for a shared device
	device   hal.Device
	queue    hal.Queue
	adapter  string
	external bool
	closed   atomic.Bool
	logger   atomic.Pointer[slog.Logger]

	modules   *gpucore.Registry[hal.ShaderModule]
	layouts   *gpucore.Registry[hal.BindGroupLayout]
	pipelines *gpucore.Registry[hal.PipelineLayout]
}

func newBackend(device hal.Device, queue hal.Queue) *Backend {
	b := &Backend{
		device:    device,
		queue:     queue,
		modules:   gpucore.NewRegistry[hal.ShaderModule](),
		layouts:   gpucore.NewRegistry[hal.BindGroupLayout](),
		pipelines: gpucore.NewRegistry[hal.PipelineLayout](),
	}
	b.SetLogger(nil)
	return b
}

// New creates a standalone Vulkan device, preferring a discrete or
// integrated GPU over software adapters.
func New() (*Backend, error) {
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	b := newBackend(openDev.Device, openDev.Queue)
	b.instance = instance
	b.adapter = selected.Info.Name
	return b, nil
}

// NewFromProvider creates a backend on the device of a host application.
// The provider must also expose HalDevice() and HalQueue(). The device
// stays owned by the host: Close does not destroy it.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHALProvider)
	}

	b := newBackend(device, queue)
	b.external = true
	b.adapter = "shared"
	return b, nil
}

// SetLogger sets the backend logger. Pass nil to silence it.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger.Store(l)
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendVulkan
}

// Adapter returns the name of the adapter the device was opened on.
func (b *Backend) Adapter() string {
	return b.adapter
}

// CreateShaderModule creates a shader module from SPIR-V bytecode.
func (b *Backend) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, backend.ErrClosed
	}
	if desc == nil || len(desc.SPIRV) == 0 {
		return gpucore.InvalidHandle, fmt.Errorf("%w: empty SPIR-V bytecode", backend.ErrInvalidDescriptor)
	}

	b.mu.Lock()
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			SPIRV: desc.SPIRV,
		},
	})
	b.mu.Unlock()
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("wgpu: create shader module %s: %w", desc.Label, err)
	}
	return b.modules.Insert(module), nil
}

// DestroyShaderModule releases a shader module.
func (b *Backend) DestroyShaderModule(h gpucore.Handle) error {
	module, err := b.modules.Remove(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return backend.ErrClosed
	}
	b.device.DestroyShaderModule(module)
	return nil
}

// CreateBindGroupLayout creates a bind group layout.
func (b *Backend) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, backend.ErrClosed
	}
	if desc == nil {
		return gpucore.InvalidHandle, fmt.Errorf("%w: nil bind group layout descriptor", backend.ErrInvalidDescriptor)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		converted, err := convertBindGroupLayoutEntry(e)
		if err != nil {
			return gpucore.InvalidHandle, fmt.Errorf("wgpu: %s: %w", desc.Label, err)
		}
		entries[i] = converted
	}

	b.mu.Lock()
	layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	b.mu.Unlock()
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("wgpu: create bind group layout %s: %w", desc.Label, err)
	}
	return b.layouts.Insert(layout), nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (b *Backend) DestroyBindGroupLayout(h gpucore.Handle) error {
	layout, err := b.layouts.Remove(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return backend.ErrClosed
	}
	b.device.DestroyBindGroupLayout(layout)
	return nil
}

// CreatePipelineLayout creates a pipeline layout.
func (b *Backend) CreatePipelineLayout(desc *gpucore.PipelineLayoutDesc) (gpucore.Handle, error) {
	if b.closed.Load() {
		return gpucore.InvalidHandle, backend.ErrClosed
	}
	if desc == nil {
		return gpucore.InvalidHandle, fmt.Errorf("%w: nil pipeline layout descriptor", backend.ErrInvalidDescriptor)
	}

	halLayouts := make([]hal.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, h := range desc.BindGroupLayouts {
		layout, err := b.layouts.Get(h)
		if err != nil {
			return gpucore.InvalidHandle, fmt.Errorf("wgpu: %s: set %d: %w", desc.Label, i, err)
		}
		halLayouts[i] = layout
	}

	b.mu.Lock()
	pipelineLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: halLayouts,
	})
	b.mu.Unlock()
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("wgpu: create pipeline layout %s: %w", desc.Label, err)
	}
	return b.pipelines.Insert(pipelineLayout), nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (b *Backend) DestroyPipelineLayout(h gpucore.Handle) error {
	layout, err := b.pipelines.Remove(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return backend.ErrClosed
	}
	b.device.DestroyPipelineLayout(layout)
	return nil
}

// Close destroys the objects still alive, then the device and instance
// unless they belong to a host. Close is idempotent.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Swap(true) {
		return
	}

	leaked := b.pipelines.Len() + b.layouts.Len() + b.modules.Len()
	if leaked > 0 {
		b.logger.Load().Warn("wgpu: destroying leaked objects on close", "count", leaked)
	}
	b.pipelines.Each(func(_ gpucore.Handle, l hal.PipelineLayout) { b.device.DestroyPipelineLayout(l) })
	b.layouts.Each(func(_ gpucore.Handle, l hal.BindGroupLayout) { b.device.DestroyBindGroupLayout(l) })
	b.modules.Each(func(_ gpucore.Handle, m hal.ShaderModule) { b.device.DestroyShaderModule(m) })

	if !b.external {
		b.device.Destroy()
		if b.instance != nil {
			b.instance.Destroy()
			b.instance = nil
		}
	}
	b.device = nil
	b.queue = nil
}

// convertBindGroupLayoutEntry converts gpucore.BindGroupLayoutEntry to gputypes.BindGroupLayoutEntry.
func convertBindGroupLayoutEntry(entry gpucore.BindGroupLayoutEntry) (gputypes.BindGroupLayoutEntry, error) {
	result := gputypes.BindGroupLayoutEntry{
		Binding: entry.Binding,
	}
	if entry.Visibility&gpucore.StageVertex != 0 {
		result.Visibility |= gputypes.ShaderStageVertex
	}
	if entry.Visibility&gpucore.StageFragment != 0 {
		result.Visibility |= gputypes.ShaderStageFragment
	}
	if entry.Visibility&gpucore.StageCompute != 0 {
		result.Visibility |= gputypes.ShaderStageCompute
	}

	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeSampler:
		typ := gputypes.SamplerBindingTypeFiltering
		if entry.Comparison {
			typ = gputypes.SamplerBindingTypeComparison
		}
		result.Sampler = &gputypes.SamplerBindingLayout{Type: typ}
	case gpucore.BindingTypeSampledTexture:
		result.Texture = &gputypes.TextureBindingLayout{
			SampleType:    sampleType(entry.SampleKind),
			ViewDimension: viewDimension(entry.ViewDimension),
			Multisampled:  entry.Multisampled,
		}
	default:
		// Storage textures need a texel format the reflection does not carry.
		return result, fmt.Errorf("%w: binding %d of type %v", ErrUnsupportedBinding, entry.Binding, entry.Type)
	}
	return result, nil
}

func sampleType(k gpucore.SampleKind) gputypes.TextureSampleType {
	switch k {
	case gpucore.SampleKindSint:
		return gputypes.TextureSampleTypeSint
	case gpucore.SampleKindUint:
		return gputypes.TextureSampleTypeUint
	case gpucore.SampleKindDepth:
		return gputypes.TextureSampleTypeDepth
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

func viewDimension(d gpucore.TextureDimension) gputypes.TextureViewDimension {
	switch d {
	case gpucore.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gpucore.TextureDimension2DArray:
		return gputypes.TextureViewDimension2DArray
	case gpucore.TextureDimensionCube:
		return gputypes.TextureViewDimensionCube
	case gpucore.TextureDimensionCubeArray:
		return gputypes.TextureViewDimensionCubeArray
	case gpucore.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimension2D
	}
}

// Compile-time interface check.
var _ gpucore.Backend = (*Backend)(nil)
