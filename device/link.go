// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/gpucore"
)

// linkedShader is the cross-stage view of a shader's resources.
type linkedShader struct {
	resources []resource // entry.Visibility filled in, set/slot order
	sets      map[uint32][]gpucore.BindGroupLayoutEntry
	maxSet    int // -1 when no resource is bound
}

// linkStages merges the resources of all stages. A slot declared with
// different binding types by two stages, or described but missing from or
// contradicted by the stages, fails with PhaseLink.
func linkStages(rec *shader.GPUShader, compiled []*compiledStage) (*linkedShader, error) {
	type slot struct {
		res      resource
		used     gpucore.StageFlags
		declared gpucore.StageFlags
		stage    int // first declaring stage
	}
	slots := make(map[gpucore.ResourceBinding]*slot)

	for i, cs := range compiled {
		kind := rec.GPUStages[i].Type
		for _, r := range cs.resources {
			s, ok := slots[r.binding]
			if !ok {
				s = &slot{res: r, stage: i}
				slots[r.binding] = s
			} else if !compatible(s.res.entry, r.entry) {
				return nil, linkError(rec.Name, fmt.Errorf(
					"%v is %v %q in stage %d (%v) but %v %q in stage %d (%v)",
					r.binding,
					s.res.entry.Type, s.res.name, s.stage, rec.GPUStages[s.stage].Type,
					r.entry.Type, r.name, i, kind))
			}
			s.declared |= kind
			if r.used {
				s.used |= kind
			}
			s.res.entry.MinBindingSize = max(s.res.entry.MinBindingSize, r.entry.MinBindingSize)
		}
	}

	declared := make(map[gpucore.ResourceBinding]gpucore.BindingType, len(slots))
	for b, s := range slots {
		declared[b] = s.res.entry.Type
	}
	if err := checkDescription(rec, declared); err != nil {
		return nil, err
	}

	l := &linkedShader{
		sets:   make(map[uint32][]gpucore.BindGroupLayoutEntry),
		maxSet: -1,
	}
	for _, b := range slices.SortedFunc(maps.Keys(slots), compareBinding) {
		s := slots[b]
		vis := s.used
		if vis == gpucore.StageNone {
			vis = s.declared
		}
		s.res.entry.Visibility = vis
		l.resources = append(l.resources, s.res)
		l.sets[b.Set] = append(l.sets[b.Set], s.res.entry)
		l.maxSet = max(l.maxSet, int(b.Set))
	}
	return l, nil
}

// checkDescription compares described blocks and samplers with what the
// stages declare. Every described slot must be declared by at least one
// stage with a matching kind.
func checkDescription(rec *shader.GPUShader, reflected map[gpucore.ResourceBinding]gpucore.BindingType) error {
	for _, blk := range rec.Blocks {
		b := gpucore.ResourceBinding{Set: blk.Set, Binding: blk.Binding}
		t, ok := reflected[b]
		if !ok {
			return linkError(rec.Name, fmt.Errorf("block %q at %v is not declared by any stage", blk.Name, b))
		}
		if !t.IsBuffer() {
			return linkError(rec.Name, fmt.Errorf("block %q at %v is declared as %v", blk.Name, b, t))
		}
	}
	for _, smp := range rec.Samplers {
		b := gpucore.ResourceBinding{Set: smp.Set, Binding: smp.Binding}
		t, ok := reflected[b]
		if !ok {
			return linkError(rec.Name, fmt.Errorf("sampler %q at %v is not declared by any stage", smp.Name, b))
		}
		if t.IsBuffer() {
			return linkError(rec.Name, fmt.Errorf("sampler %q at %v is declared as %v", smp.Name, b, t))
		}
	}
	return nil
}

// compatible reports whether two declarations of one slot can share a
// layout entry. Buffer sizes may differ; the larger one wins.
func compatible(a, b gpucore.BindGroupLayoutEntry) bool {
	return a.Type == b.Type &&
		a.ViewDimension == b.ViewDimension &&
		a.SampleKind == b.SampleKind &&
		a.Multisampled == b.Multisampled &&
		a.Comparison == b.Comparison
}

func compareBinding(a, b gpucore.ResourceBinding) int {
	if c := cmp.Compare(a.Set, b.Set); c != 0 {
		return c
	}
	return cmp.Compare(a.Binding, b.Binding)
}

func linkError(name string, err error) error {
	return &shader.ShaderCompilationError{
		Shader:     name,
		Stage:      gpucore.StageNone,
		StageIndex: -1,
		Phase:      shader.PhaseLink,
		Err:        err,
	}
}

// fill writes the reflection results into rec. Handles are not touched.
func (l *linkedShader) fill(rec *shader.GPUShader, compiled []*compiledStage) {
	rec.GPUInputs = rec.GPUInputs[:0]
	rec.GPUUniforms = rec.GPUUniforms[:0]
	rec.GPUBlocks = rec.GPUBlocks[:0]
	rec.GPUSamplers = rec.GPUSamplers[:0]
	clear(rec.Bindings)

	seenLocation := make(map[uint32]bool)
	for i, cs := range compiled {
		st := &rec.GPUStages[i]
		st.EntryPoint = cs.entryPoint
		if st.Attrs == nil {
			st.Attrs = make(map[string]shader.GPUInput)
		}
		st.Bindings = st.Bindings[:0]
		for _, r := range cs.resources {
			if r.used {
				st.Bindings = append(st.Bindings, r.binding)
			}
		}
		for _, in := range cs.inputs {
			st.Attrs[in.Name] = in
			if !seenLocation[in.Location] {
				seenLocation[in.Location] = true
				rec.GPUInputs = append(rec.GPUInputs, in)
			}
		}
	}
	slices.SortFunc(rec.GPUInputs, func(a, b shader.GPUInput) int {
		return cmp.Compare(a.Location, b.Location)
	})

	for _, r := range l.resources {
		rec.Bindings[r.binding.Set] = append(rec.Bindings[r.binding.Set], r.binding.Binding)
		if r.entry.Type.IsBuffer() {
			rec.GPUBlocks = append(rec.GPUBlocks, shader.GPUUniformBlock{
				Set:         r.binding.Set,
				Binding:     r.binding.Binding,
				Name:        r.name,
				TypeName:    r.typeName,
				BindingType: r.entry.Type,
				Size:        r.size,
				Visibility:  r.entry.Visibility,
				Members:     slices.Clone(r.members),
			})
			rec.GPUUniforms = append(rec.GPUUniforms, r.members...)
			continue
		}
		rec.GPUSamplers = append(rec.GPUSamplers, shader.GPUSampler{
			Set:           r.binding.Set,
			Binding:       r.binding.Binding,
			Name:          r.name,
			Type:          r.typ,
			BindingType:   r.entry.Type,
			ViewDimension: r.entry.ViewDimension,
			SampleKind:    r.entry.SampleKind,
			Multisampled:  r.entry.Multisampled,
			Visibility:    r.entry.Visibility,
		})
	}
}
