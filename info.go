package shader

import (
	"fmt"
	"slices"

	"github.com/gogpu/shader/gpucore"
)

// StageFlags is a set of pipeline stages.
type StageFlags = gpucore.StageFlags

// Stage kinds, re-exported from gpucore for description literals.
const (
	StageVertex   = gpucore.StageVertex
	StageFragment = gpucore.StageFragment
	StageCompute  = gpucore.StageCompute
)

// ShaderStage is one unit of WGSL source bound to a pipeline stage.
type ShaderStage struct {
	Stage  gpucore.StageFlags `yaml:"stage" toml:"stage" json:"stage"`
	Source string             `yaml:"source" toml:"source" json:"source"`
}

// Attribute describes a vertex attribute the engine feeds to the shader.
type Attribute struct {
	Name         string `yaml:"name" toml:"name" json:"name"`
	Type         Type   `yaml:"type" toml:"type" json:"type"`
	IsNormalized bool   `yaml:"normalized,omitempty" toml:"normalized,omitempty" json:"normalized,omitempty"`
	Stream       uint32 `yaml:"stream,omitempty" toml:"stream,omitempty" json:"stream,omitempty"`
	IsInstanced  bool   `yaml:"instanced,omitempty" toml:"instanced,omitempty" json:"instanced,omitempty"`
	Location     uint32 `yaml:"location" toml:"location" json:"location"`
}

// Uniform is a member of a uniform block.
type Uniform struct {
	Name  string `yaml:"name" toml:"name" json:"name"`
	Type  Type   `yaml:"type" toml:"type" json:"type"`
	Count uint32 `yaml:"count,omitempty" toml:"count,omitempty" json:"count,omitempty"`
}

// UniformBlock describes a uniform buffer binding.
type UniformBlock struct {
	Set     uint32    `yaml:"set" toml:"set" json:"set"`
	Binding uint32    `yaml:"binding" toml:"binding" json:"binding"`
	Name    string    `yaml:"name" toml:"name" json:"name"`
	Members []Uniform `yaml:"members,omitempty" toml:"members,omitempty" json:"members,omitempty"`
	Count   uint32    `yaml:"count,omitempty" toml:"count,omitempty" json:"count,omitempty"`
}

// Clone returns a deep copy of b.
func (b UniformBlock) Clone() UniformBlock {
	b.Members = slices.Clone(b.Members)
	return b
}

// UniformSamplerTexture describes a sampler or texture binding.
type UniformSamplerTexture struct {
	Set     uint32 `yaml:"set" toml:"set" json:"set"`
	Binding uint32 `yaml:"binding" toml:"binding" json:"binding"`
	Name    string `yaml:"name" toml:"name" json:"name"`
	Type    Type   `yaml:"type" toml:"type" json:"type"`
	Count   uint32 `yaml:"count,omitempty" toml:"count,omitempty" json:"count,omitempty"`
}

// Info is the platform-neutral description of a shader.
//
// Initialize does not modify it and keeps no reference to its slices.
type Info struct {
	Name       string                  `yaml:"name" toml:"name" json:"name"`
	Stages     []ShaderStage           `yaml:"stages" toml:"stages" json:"stages"`
	Attributes []Attribute             `yaml:"attributes,omitempty" toml:"attributes,omitempty" json:"attributes,omitempty"`
	Blocks     []UniformBlock          `yaml:"blocks,omitempty" toml:"blocks,omitempty" json:"blocks,omitempty"`
	Samplers   []UniformSamplerTexture `yaml:"samplers,omitempty" toml:"samplers,omitempty" json:"samplers,omitempty"`
}

// Validate performs the upstream checks Initialize relies on: a name, at
// least one stage, and a single known stage kind with source per stage.
func (info *Info) Validate() error {
	if info == nil {
		return fmt.Errorf("%w: nil description", ErrInvalidDescription)
	}
	if info.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescription)
	}
	if len(info.Stages) == 0 {
		return fmt.Errorf("%w: %s: no stages", ErrInvalidDescription, info.Name)
	}
	for i, st := range info.Stages {
		switch st.Stage {
		case StageVertex, StageFragment, StageCompute:
		default:
			return fmt.Errorf("%w: %s: stage %d has kind %v", ErrInvalidDescription, info.Name, i, st.Stage)
		}
		if st.Source == "" {
			return fmt.Errorf("%w: %s: stage %d (%v) has no source", ErrInvalidDescription, info.Name, i, st.Stage)
		}
	}
	return nil
}

func cloneBlocks(blocks []UniformBlock) []UniformBlock {
	if blocks == nil {
		return nil
	}
	out := make([]UniformBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
