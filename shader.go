package shader

import (
	"fmt"
	"slices"
)

// Shader manages the backend resources of one logical shader.
//
// Initialize creates the resources once, Destroy releases them once. The
// GPUShader record is owned by the Shader that created it and is never
// shared with another Shader.
//
// A Shader is not safe for concurrent use; it is expected to be driven from
// the goroutine that owns the graphics context.
type Shader struct {
	device Device

	name       string
	stages     []ShaderStage
	attributes []Attribute
	blocks     []UniformBlock
	samplers   []UniformSamplerTexture

	gpuShader *GPUShader
}

// New creates an uninitialized Shader.
func New(opts ...Option) *Shader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Shader{device: o.device}
}

// Initialize compiles info on the device and installs the resulting record.
//
// info must already be validated (see Info.Validate); Initialize does not
// check it beyond rejecting nil. A compilation or link failure is returned
// unchanged from the device, typically as a *ShaderCompilationError, and
// leaves the Shader without a record. Calling Initialize on a Shader that
// holds a record returns ErrAlreadyInitialized.
func (s *Shader) Initialize(info *Info) error {
	if info == nil {
		return fmt.Errorf("%w: nil description", ErrInvalidDescription)
	}
	if s.gpuShader != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, s.name)
	}
	dev := s.device
	if dev == nil {
		dev = CurrentDevice()
	}
	if dev == nil {
		return ErrNoDevice
	}
	s.device = dev

	s.name = info.Name
	s.stages = slices.Clone(info.Stages)
	s.attributes = slices.Clone(info.Attributes)
	s.blocks = cloneBlocks(info.Blocks)
	s.samplers = slices.Clone(info.Samplers)

	rec := NewGPUShader(info)
	if err := dev.CreateShaderResources(rec); err != nil {
		return err
	}
	if !rec.Complete() {
		if err := dev.ReleaseShaderResources(rec); err != nil {
			Logger().Warn("shader: release after incomplete creation failed",
				"shader", rec.Name, "err", err)
		}
		return fmt.Errorf("%w: %s", ErrIncompleteRecord, rec.Name)
	}

	s.gpuShader = rec
	Logger().Debug("shader: created",
		"shader", rec.Name,
		"stages", len(rec.GPUStages),
		"sets", rec.BindingSets(),
		"inputs", len(rec.GPUInputs))
	return nil
}

// Destroy releases the shader's backend resources. It is safe to call on a
// Shader that was never initialized, failed to initialize, or was already
// destroyed; those calls do nothing. Release failures are logged, not
// returned, since teardown is best effort.
func (s *Shader) Destroy() {
	rec := s.gpuShader
	if rec == nil {
		return
	}
	s.gpuShader = nil

	if err := s.device.ReleaseShaderResources(rec); err != nil {
		Logger().Warn("shader: release failed", "shader", rec.Name, "err", err)
		return
	}
	Logger().Debug("shader: destroyed", "shader", rec.Name)
}

// GPUShader returns the record, or ErrUninitialized before a successful
// Initialize and after Destroy.
func (s *Shader) GPUShader() (*GPUShader, error) {
	if s.gpuShader == nil {
		return nil, ErrUninitialized
	}
	return s.gpuShader, nil
}

// MustGPUShader returns the record or panics with ErrUninitialized.
func (s *Shader) MustGPUShader() *GPUShader {
	rec, err := s.GPUShader()
	if err != nil {
		panic(fmt.Errorf("%w: %s", err, s.name))
	}
	return rec
}

// Initialized reports whether the Shader holds a record.
func (s *Shader) Initialized() bool { return s.gpuShader != nil }

// Device returns the device the Shader was created on, or nil.
func (s *Shader) Device() Device { return s.device }

// Name returns the name copied from the description.
func (s *Shader) Name() string { return s.name }

// Stages returns the stage descriptions copied at Initialize.
func (s *Shader) Stages() []ShaderStage { return s.stages }

// Attributes returns the attribute descriptions copied at Initialize.
func (s *Shader) Attributes() []Attribute { return s.attributes }

// Blocks returns the uniform block descriptions copied at Initialize.
func (s *Shader) Blocks() []UniformBlock { return s.blocks }

// Samplers returns the sampler descriptions copied at Initialize.
func (s *Shader) Samplers() []UniformSamplerTexture { return s.samplers }
