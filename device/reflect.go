// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"cmp"
	"slices"

	"github.com/gogpu/naga/ir"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/gpucore"
)

// resource is one bound global variable of a stage module.
type resource struct {
	binding  gpucore.ResourceBinding
	name     string
	typeName string
	typ      shader.Type
	size     uint32
	members  []shader.GPUUniform

	// used reports whether the entry point reaches the variable.
	used bool

	// entry is the layout entry without visibility; link fills it in.
	entry gpucore.BindGroupLayoutEntry
}

// usedGlobals returns the global variables reachable from an entry point
// function, following calls into module.Functions.
func usedGlobals(module *ir.Module, entry *ir.Function) map[ir.GlobalVariableHandle]bool {
	used := make(map[ir.GlobalVariableHandle]bool)
	visited := make(map[ir.FunctionHandle]bool)

	var scan func(fn *ir.Function)
	visit := func(h ir.FunctionHandle) {
		if visited[h] || int(h) >= len(module.Functions) {
			return
		}
		visited[h] = true
		scan(&module.Functions[h])
	}
	scan = func(fn *ir.Function) {
		for _, expr := range fn.Expressions {
			switch k := expr.Kind.(type) {
			case ir.ExprGlobalVariable:
				used[k.Variable] = true
			case ir.ExprCallResult:
				visit(k.Function)
			}
		}
		walkCalls(fn.Body, visit)
	}
	scan(entry)
	return used
}

// walkCalls reports every function called from a block, nested blocks included.
func walkCalls(block ir.Block, visit func(ir.FunctionHandle)) {
	for _, st := range block {
		switch k := st.Kind.(type) {
		case ir.StmtCall:
			visit(k.Function)
		case ir.StmtBlock:
			walkCalls(k.Block, visit)
		case ir.StmtIf:
			walkCalls(k.Accept, visit)
			walkCalls(k.Reject, visit)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				walkCalls(c.Body, visit)
			}
		case ir.StmtLoop:
			walkCalls(k.Body, visit)
			walkCalls(k.Continuing, visit)
		}
	}
}

// reflectResources lists the bound globals of a module in set/slot order.
// Globals without @group/@binding or outside the resource address spaces
// are skipped.
func reflectResources(module *ir.Module, used map[ir.GlobalVariableHandle]bool) []resource {
	var out []resource
	for i := range module.GlobalVariables {
		gv := &module.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		r := resource{
			binding: gpucore.ResourceBinding{Set: gv.Binding.Group, Binding: gv.Binding.Binding},
			name:    gv.Name,
			used:    used[ir.GlobalVariableHandle(i)],
		}
		r.entry.Binding = gv.Binding.Binding

		inner := typeInner(module, gv.Type)
		switch gv.Space {
		case ir.SpaceUniform, ir.SpaceStorage:
			r.entry.Type = gpucore.BindingTypeUniformBuffer
			if gv.Space == ir.SpaceStorage {
				r.entry.Type = gpucore.BindingTypeStorageBuffer
			}
			r.typ = typeOf(module, gv.Type)
			r.typeName = typeName(module, gv.Type)
			r.size = sizeOf(module, gv.Type)
			r.entry.MinBindingSize = uint64(r.size)
			if st, ok := inner.(ir.StructType); ok {
				r.members = reflectMembers(module, gv.Name, st)
			}
		case ir.SpaceHandle:
			if !reflectHandle(&r, inner) {
				continue
			}
		default:
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b resource) int {
		if c := cmp.Compare(a.binding.Set, b.binding.Set); c != 0 {
			return c
		}
		return cmp.Compare(a.binding.Binding, b.binding.Binding)
	})
	return out
}

// reflectHandle fills the layout entry of a sampler or texture.
func reflectHandle(r *resource, inner ir.TypeInner) bool {
	switch t := inner.(type) {
	case ir.SamplerType:
		r.entry.Type = gpucore.BindingTypeSampler
		r.entry.Comparison = t.Comparison
		r.typ = shader.TypeSampler
		if t.Comparison {
			r.typ = shader.TypeSamplerComparison
		}
	case ir.ImageType:
		r.entry.Type = gpucore.BindingTypeSampledTexture
		r.entry.ViewDimension = viewDimension(t)
		r.entry.Multisampled = t.Multisampled
		switch t.Class {
		case ir.ImageClassDepth:
			r.entry.SampleKind = gpucore.SampleKindDepth
		case ir.ImageClassStorage:
			r.entry.Type = gpucore.BindingTypeStorageTexture
		}
		r.typ = textureType(t)
	default:
		return false
	}
	return true
}

// reflectMembers flattens the members of a buffer block.
func reflectMembers(module *ir.Module, block string, st ir.StructType) []shader.GPUUniform {
	members := make([]shader.GPUUniform, 0, len(st.Members))
	for _, m := range st.Members {
		u := shader.GPUUniform{
			Block:  block,
			Name:   m.Name,
			Type:   typeOf(module, m.Type),
			Offset: m.Offset,
			Size:   sizeOf(module, m.Type),
			Count:  1,
		}
		if arr, ok := typeInner(module, m.Type).(ir.ArrayType); ok {
			u.Count = 0 // runtime-sized
			if arr.Size.Constant != nil {
				u.Count = *arr.Size.Constant
			}
		}
		members = append(members, u)
	}
	return members
}

// reflectInputs lists the location-bound inputs of a vertex entry point,
// looking through struct arguments, ordered by location.
func reflectInputs(module *ir.Module, fn *ir.Function) []shader.GPUInput {
	var inputs []shader.GPUInput
	add := func(name string, binding *ir.Binding, th ir.TypeHandle) {
		if binding == nil {
			return
		}
		loc, ok := (*binding).(ir.LocationBinding)
		if !ok {
			return
		}
		inputs = append(inputs, shader.GPUInput{
			Name:     name,
			Location: loc.Location,
			Type:     typeOf(module, th),
			Size:     sizeOf(module, th),
		})
	}

	for _, arg := range fn.Arguments {
		if st, ok := typeInner(module, arg.Type).(ir.StructType); ok && arg.Binding == nil {
			for _, m := range st.Members {
				add(m.Name, m.Binding, m.Type)
			}
			continue
		}
		add(arg.Name, arg.Binding, arg.Type)
	}
	slices.SortFunc(inputs, func(a, b shader.GPUInput) int {
		return cmp.Compare(a.Location, b.Location)
	})
	return inputs
}

func typeName(module *ir.Module, th ir.TypeHandle) string {
	if int(th) >= len(module.Types) {
		return ""
	}
	return module.Types[th].Name
}

func typeInner(module *ir.Module, th ir.TypeHandle) ir.TypeInner {
	if int(th) >= len(module.Types) {
		return nil
	}
	return module.Types[th].Inner
}

// typeOf maps an IR type to the description type vocabulary.
func typeOf(module *ir.Module, th ir.TypeHandle) shader.Type {
	switch t := typeInner(module, th).(type) {
	case ir.ScalarType:
		return scalarType(t.Kind, 1)
	case ir.AtomicType:
		return scalarType(t.Scalar.Kind, 1)
	case ir.VectorType:
		return scalarType(t.Scalar.Kind, int(t.Size))
	case ir.MatrixType:
		if t.Columns != t.Rows || t.Scalar.Kind != ir.ScalarFloat {
			return shader.TypeUnknown
		}
		switch t.Columns {
		case ir.Vec2:
			return shader.TypeMat2
		case ir.Vec3:
			return shader.TypeMat3
		case ir.Vec4:
			return shader.TypeMat4
		}
	case ir.ArrayType:
		return typeOf(module, t.Base)
	case ir.StructType:
		return shader.TypeStruct
	case ir.SamplerType:
		if t.Comparison {
			return shader.TypeSamplerComparison
		}
		return shader.TypeSampler
	case ir.ImageType:
		return textureType(t)
	}
	return shader.TypeUnknown
}

func scalarType(kind ir.ScalarKind, n int) shader.Type {
	if n < 1 || n > 4 {
		return shader.TypeUnknown
	}
	var base shader.Type
	switch kind {
	case ir.ScalarBool:
		if n != 1 {
			return shader.TypeUnknown
		}
		return shader.TypeBool
	case ir.ScalarSint:
		base = shader.TypeInt
	case ir.ScalarUint:
		base = shader.TypeUint
	case ir.ScalarFloat:
		base = shader.TypeFloat
	default:
		return shader.TypeUnknown
	}
	return base + shader.Type(n-1)
}

func textureType(t ir.ImageType) shader.Type {
	switch {
	case t.Class == ir.ImageClassStorage:
		return shader.TypeStorageTexture2D
	case t.Class == ir.ImageClassDepth:
		return shader.TypeTextureDepth2D
	}
	switch t.Dim {
	case ir.Dim1D:
		return shader.TypeTexture1D
	case ir.Dim2D:
		if t.Arrayed {
			return shader.TypeTexture2DArray
		}
		return shader.TypeTexture2D
	case ir.Dim3D:
		return shader.TypeTexture3D
	case ir.DimCube:
		if t.Arrayed {
			return shader.TypeTextureCubeArray
		}
		return shader.TypeTextureCube
	}
	return shader.TypeUnknown
}

func viewDimension(t ir.ImageType) gpucore.TextureDimension {
	switch t.Dim {
	case ir.Dim1D:
		return gpucore.TextureDimension1D
	case ir.Dim2D:
		if t.Arrayed {
			return gpucore.TextureDimension2DArray
		}
		return gpucore.TextureDimension2D
	case ir.Dim3D:
		return gpucore.TextureDimension3D
	case ir.DimCube:
		if t.Arrayed {
			return gpucore.TextureDimensionCubeArray
		}
		return gpucore.TextureDimensionCube
	}
	return gpucore.TextureDimensionUndefined
}

// sizeOf returns the host-shareable size of a type in bytes, 0 for
// runtime-sized arrays and opaque types.
func sizeOf(module *ir.Module, th ir.TypeHandle) uint32 {
	switch t := typeInner(module, th).(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.AtomicType:
		return uint32(t.Scalar.Width)
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.MatrixType:
		// Columns are vectors of Rows components, vec3 padded to vec4.
		rows := uint32(t.Rows)
		if rows == 3 {
			rows = 4
		}
		return uint32(t.Columns) * rows * uint32(t.Scalar.Width)
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0
		}
		stride := t.Stride
		if stride == 0 {
			stride = sizeOf(module, t.Base)
		}
		return stride * *t.Size.Constant
	case ir.StructType:
		return t.Span
	}
	return 0
}
