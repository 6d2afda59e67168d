package gpucore

import (
	"fmt"
	"strings"
)

// Handle is an opaque token for a backend object.
//
// The low 32 bits hold the registry slot (offset by one so the zero value
// is never a live handle), the high 32 bits hold the slot generation. A
// handle outlives its object only as a stale token: a registry rejects it
// once the object is removed, even if the slot is reused.
type Handle uint64

// InvalidHandle is the zero value, representing no backend object.
const InvalidHandle Handle = 0

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

// slot returns the registry slot and true, or false for InvalidHandle.
func (h Handle) slot() (uint32, bool) {
	s := uint32(h)
	if s == 0 {
		return 0, false
	}
	return s - 1, true
}

func (h Handle) generation() uint32 { return uint32(h >> 32) }

// Valid reports whether h is not InvalidHandle. A valid handle may still be stale.
func (h Handle) Valid() bool { return h != InvalidHandle }

func (h Handle) String() string {
	s, ok := h.slot()
	if !ok {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d#%d)", s, h.generation())
}

// StageFlags is a bitmask of shader pipeline stages.
type StageFlags uint32

// Shader stages.
const (
	StageVertex StageFlags = 1 << iota
	StageFragment
	StageCompute

	StageNone StageFlags = 0
	StageAll             = StageVertex | StageFragment | StageCompute
)

func (s StageFlags) String() string {
	if s == StageNone {
		return "none"
	}
	var parts []string
	if s&StageVertex != 0 {
		parts = append(parts, "vertex")
	}
	if s&StageFragment != 0 {
		parts = append(parts, "fragment")
	}
	if s&StageCompute != 0 {
		parts = append(parts, "compute")
	}
	if rest := s &^ StageAll; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseStage parses a single stage name as written in description files.
func ParseStage(name string) (StageFlags, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vertex", "vert", "vs":
		return StageVertex, nil
	case "fragment", "frag", "fs", "pixel":
		return StageFragment, nil
	case "compute", "comp", "cs":
		return StageCompute, nil
	}
	return StageNone, fmt.Errorf("gpucore: unknown shader stage %q", name)
}

// MarshalText implements encoding.TextMarshaler for single stages and masks.
func (s StageFlags) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts a single
// stage name or several joined with '|'.
func (s *StageFlags) UnmarshalText(text []byte) error {
	var flags StageFlags
	for _, part := range strings.Split(string(text), "|") {
		f, err := ParseStage(part)
		if err != nil {
			return err
		}
		flags |= f
	}
	*s = flags
	return nil
}

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeStorageBuffer is a storage buffer binding (read-write).
	BindingTypeStorageBuffer

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer

	// BindingTypeSampler is a texture sampler binding.
	BindingTypeSampler

	// BindingTypeSampledTexture is a sampled texture binding.
	BindingTypeSampledTexture

	// BindingTypeStorageTexture is a storage texture binding.
	BindingTypeStorageTexture
)

var bindingTypeNames = map[BindingType]string{
	BindingTypeUniformBuffer:         "uniform-buffer",
	BindingTypeStorageBuffer:         "storage-buffer",
	BindingTypeReadOnlyStorageBuffer: "read-only-storage-buffer",
	BindingTypeSampler:               "sampler",
	BindingTypeSampledTexture:        "sampled-texture",
	BindingTypeStorageTexture:        "storage-texture",
}

func (t BindingType) String() string {
	if n, ok := bindingTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("BindingType(%d)", uint32(t))
}

// IsBuffer reports whether the binding is backed by a buffer.
func (t BindingType) IsBuffer() bool {
	return t == BindingTypeUniformBuffer || t == BindingTypeStorageBuffer || t == BindingTypeReadOnlyStorageBuffer
}

// TextureDimension is the view dimension of a texture binding.
type TextureDimension uint32

// Texture view dimensions.
const (
	TextureDimensionUndefined TextureDimension = iota
	TextureDimension1D
	TextureDimension2D
	TextureDimension2DArray
	TextureDimensionCube
	TextureDimensionCubeArray
	TextureDimension3D
)

// SampleKind is the component kind a texture binding yields.
type SampleKind uint32

// Texture sample kinds.
const (
	SampleKindFloat SampleKind = iota
	SampleKindSint
	SampleKindUint
	SampleKindDepth
)

// ResourceBinding addresses one slot of one descriptor set.
type ResourceBinding struct {
	Set     uint32
	Binding uint32
}

func (b ResourceBinding) String() string {
	return fmt.Sprintf("@group(%d) @binding(%d)", b.Set, b.Binding)
}

// Less orders bindings by set, then slot.
func (b ResourceBinding) Less(o ResourceBinding) bool {
	if b.Set != o.Set {
		return b.Set < o.Set
	}
	return b.Binding < o.Binding
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// Visibility is the set of stages that access the binding.
	Visibility StageFlags

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Set to 0 for non-buffer bindings or runtime-sized buffers.
	MinBindingSize uint64

	// ViewDimension, SampleKind and Multisampled describe texture bindings.
	ViewDimension TextureDimension
	SampleKind    SampleKind
	Multisampled  bool

	// Comparison marks comparison samplers.
	Comparison bool
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// Set is the descriptor set index the layout is created for.
	Set uint32

	// Entries defines the bindings in this layout, ordered by Binding.
	Entries []BindGroupLayoutEntry
}

// PipelineLayoutDesc describes a pipeline layout.
type PipelineLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// BindGroupLayouts are indexed by set; every set up to the highest used
	// one has a layout (unused sets get an empty one).
	BindGroupLayouts []Handle
}

// ShaderModuleDesc describes a compiled shader stage handed to a backend.
type ShaderModuleDesc struct {
	// Label is an optional debug label.
	Label string

	// Stage is the pipeline stage the module is compiled for.
	Stage StageFlags

	// EntryPoint is the name of the entry point function.
	EntryPoint string

	// SPIRV is the compiled module as little-endian 32-bit words.
	SPIRV []uint32

	// WGSL is the stage source, for backends that compile it themselves.
	WGSL string
}
