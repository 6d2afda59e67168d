package shader

import (
	"fmt"
	"strings"
)

// Type is the data type of an attribute, uniform member or sampled resource.
type Type uint32

// Data types.
const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt
	TypeInt2
	TypeInt3
	TypeInt4
	TypeUint
	TypeUint2
	TypeUint3
	TypeUint4
	TypeFloat
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeMat2
	TypeMat3
	TypeMat4
	TypeStruct
	TypeSampler
	TypeSamplerComparison
	TypeTexture1D
	TypeTexture2D
	TypeTexture2DArray
	TypeTextureCube
	TypeTextureCubeArray
	TypeTexture3D
	TypeTextureDepth2D
	TypeStorageTexture2D
)

var typeNames = [...]string{
	TypeUnknown:           "unknown",
	TypeBool:              "bool",
	TypeInt:               "int",
	TypeInt2:              "int2",
	TypeInt3:              "int3",
	TypeInt4:              "int4",
	TypeUint:              "uint",
	TypeUint2:             "uint2",
	TypeUint3:             "uint3",
	TypeUint4:             "uint4",
	TypeFloat:             "float",
	TypeFloat2:            "float2",
	TypeFloat3:            "float3",
	TypeFloat4:            "float4",
	TypeMat2:              "mat2",
	TypeMat3:              "mat3",
	TypeMat4:              "mat4",
	TypeStruct:            "struct",
	TypeSampler:           "sampler",
	TypeSamplerComparison: "sampler-comparison",
	TypeTexture1D:         "texture1d",
	TypeTexture2D:         "texture2d",
	TypeTexture2DArray:    "texture2d-array",
	TypeTextureCube:       "texture-cube",
	TypeTextureCubeArray:  "texture-cube-array",
	TypeTexture3D:         "texture3d",
	TypeTextureDepth2D:    "texture-depth2d",
	TypeStorageTexture2D:  "storage-texture2d",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// ParseType parses the name produced by Type.String.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == s {
			return Type(i), nil
		}
	}
	return TypeUnknown, fmt.Errorf("shader: unknown type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// IsTexture reports whether t is a texture type.
func (t Type) IsTexture() bool {
	return t >= TypeTexture1D && t <= TypeStorageTexture2D
}

// IsSampler reports whether t is a sampler type.
func (t Type) IsSampler() bool {
	return t == TypeSampler || t == TypeSamplerComparison
}

// Size returns the byte size of a scalar, vector or matrix type, or 0.
func (t Type) Size() uint32 {
	switch t {
	case TypeBool, TypeInt, TypeUint, TypeFloat:
		return 4
	case TypeInt2, TypeUint2, TypeFloat2:
		return 8
	case TypeInt3, TypeUint3, TypeFloat3:
		return 12
	case TypeInt4, TypeUint4, TypeFloat4, TypeMat2:
		return 16
	case TypeMat3:
		return 48
	case TypeMat4:
		return 64
	}
	return 0
}
