package shader

import (
	"slices"

	"github.com/gogpu/shader/gpucore"
)

// GPUShaderStage is the compiled state of one stage.
type GPUShaderStage struct {
	Type   gpucore.StageFlags
	Source string

	// EntryPoint is the entry point function selected for Type.
	EntryPoint string

	// GPUShader is the backend shader module, absent until creation completes.
	GPUShader gpucore.Optional[gpucore.Handle]

	// Bindings lists the resources the entry point references, in set/slot order.
	Bindings []gpucore.ResourceBinding

	// Attrs maps attribute name to reflected input (vertex stages only).
	Attrs map[string]GPUInput
}

// GPUInput is a reflected vertex input.
type GPUInput struct {
	Name     string
	Location uint32
	Type     Type
	Size     uint32
}

// GPUUniform is a reflected member of a buffer block.
type GPUUniform struct {
	Block  string
	Name   string
	Type   Type
	Offset uint32
	Size   uint32
	Count  uint32
}

// GPUUniformBlock is a reflected uniform or storage buffer binding.
type GPUUniformBlock struct {
	Set         uint32
	Binding     uint32
	Name        string // variable name
	TypeName    string // struct type name, if any
	BindingType gpucore.BindingType
	Size        uint32 // 0 for runtime-sized
	Visibility  gpucore.StageFlags
	Members     []GPUUniform
}

// GPUSampler is a reflected sampler or texture binding.
type GPUSampler struct {
	Set           uint32
	Binding       uint32
	Name          string
	Type          Type
	BindingType   gpucore.BindingType
	ViewDimension gpucore.TextureDimension
	SampleKind    gpucore.SampleKind
	Multisampled  bool
	Visibility    gpucore.StageFlags
}

// GPUShader is the post-creation state of a shader: compiled stages plus
// the reflected binding metadata consumed by pipeline and descriptor
// layout construction. Consumers must treat it as read-only.
type GPUShader struct {
	Name     string
	Blocks   []UniformBlock
	Samplers []UniformSamplerTexture

	GPUStages []GPUShaderStage

	// GPUProgram is the linked program (the pipeline layout for the
	// reference device), absent until creation completes.
	GPUProgram gpucore.Optional[gpucore.Handle]

	// GPULayouts holds the bind group layout created for each set.
	GPULayouts map[uint32]gpucore.Handle

	GPUInputs   []GPUInput
	GPUUniforms []GPUUniform
	GPUBlocks   []GPUUniformBlock
	GPUSamplers []GPUSampler

	// Bindings maps a descriptor set index to its ascending binding slots.
	Bindings map[uint32][]uint32
}

// NewGPUShader allocates a record for info with all handles absent and
// empty reflection. Devices fill it in CreateShaderResources.
func NewGPUShader(info *Info) *GPUShader {
	rec := &GPUShader{
		Name:        info.Name,
		Blocks:      cloneBlocks(info.Blocks),
		Samplers:    slices.Clone(info.Samplers),
		GPUStages:   make([]GPUShaderStage, len(info.Stages)),
		GPULayouts:  make(map[uint32]gpucore.Handle),
		GPUInputs:   []GPUInput{},
		GPUUniforms: []GPUUniform{},
		GPUBlocks:   []GPUUniformBlock{},
		GPUSamplers: []GPUSampler{},
		Bindings:    make(map[uint32][]uint32),
	}
	for i, st := range info.Stages {
		rec.GPUStages[i] = GPUShaderStage{
			Type:     st.Stage,
			Source:   st.Source,
			Bindings: []gpucore.ResourceBinding{},
			Attrs:    make(map[string]GPUInput),
		}
	}
	return rec
}

// Complete reports whether the program and every stage module are present.
func (s *GPUShader) Complete() bool {
	if s.GPUProgram.IsNone() {
		return false
	}
	for i := range s.GPUStages {
		if s.GPUStages[i].GPUShader.IsNone() {
			return false
		}
	}
	return true
}

// Empty reports whether no handle at all is present.
func (s *GPUShader) Empty() bool {
	if s.GPUProgram.IsSome() || len(s.GPULayouts) > 0 {
		return false
	}
	for i := range s.GPUStages {
		if s.GPUStages[i].GPUShader.IsSome() {
			return false
		}
	}
	return true
}

// BindingSets returns the used set indices in ascending order.
func (s *GPUShader) BindingSets() []uint32 {
	sets := make([]uint32, 0, len(s.Bindings))
	for set := range s.Bindings {
		sets = append(sets, set)
	}
	slices.Sort(sets)
	return sets
}

// Stage returns the first stage of the given kind.
func (s *GPUShader) Stage(kind gpucore.StageFlags) (*GPUShaderStage, bool) {
	for i := range s.GPUStages {
		if s.GPUStages[i].Type == kind {
			return &s.GPUStages[i], true
		}
	}
	return nil, false
}
