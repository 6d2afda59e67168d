// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/gpucore"
)

// stageKey identifies a compiled stage in the cache.
type stageKey struct {
	stage  gpucore.StageFlags
	source string
}

// compiledStage is the result of compiling and reflecting one stage.
// It is shared through the cache and never modified after creation.
type compiledStage struct {
	entryPoint string
	spirv      []uint32
	inputs     []shader.GPUInput
	resources  []resource
}

// compileStage turns the WGSL source of one stage into SPIR-V plus
// reflection data, consulting the cache first.
func (d *Device) compileStage(name string, index int, st *shader.GPUShaderStage) (*compiledStage, error) {
	key := stageKey{stage: st.Type, source: st.Source}
	if cs, ok := d.cache.Get(key); ok {
		d.Logger().Debug("device: stage cache hit", "shader", name, "stage", st.Type, "entry", cs.entryPoint)
		return cs, nil
	}

	fail := func(phase shader.Phase, err error) error {
		return &shader.ShaderCompilationError{
			Shader:     name,
			Stage:      st.Type,
			StageIndex: index,
			Phase:      phase,
			Err:        err,
		}
	}

	ast, err := naga.Parse(st.Source)
	if err != nil {
		return nil, fail(shader.PhaseParse, err)
	}
	module, err := naga.LowerWithSource(ast, st.Source)
	if err != nil {
		return nil, fail(shader.PhaseLower, err)
	}

	if d.opts.validate {
		issues, err := naga.Validate(module)
		if err != nil {
			return nil, fail(shader.PhaseValidate, err)
		}
		if len(issues) > 0 {
			errs := make([]error, len(issues))
			for i := range issues {
				errs[i] = issues[i]
			}
			return nil, fail(shader.PhaseValidate, errors.Join(errs...))
		}
	}

	ep, err := selectEntryPoint(module, st.Type)
	if err != nil {
		return nil, fail(shader.PhaseEntry, err)
	}

	spvOpts := spirv.DefaultOptions()
	spvOpts.Version = d.opts.spirvVersion
	spvOpts.Debug = d.opts.debugInfo
	spvOpts.Validation = d.opts.validate
	spirvBytes, err := naga.GenerateSPIRV(module, spvOpts)
	if err != nil {
		return nil, fail(shader.PhaseGenerate, err)
	}
	words, err := spirvWords(spirvBytes)
	if err != nil {
		return nil, fail(shader.PhaseGenerate, err)
	}

	fn := &ep.Function
	cs := &compiledStage{
		entryPoint: ep.Name,
		spirv:      words,
		resources:  reflectResources(module, usedGlobals(module, fn)),
	}
	if st.Type == gpucore.StageVertex {
		cs.inputs = reflectInputs(module, fn)
	}

	d.cache.Add(key, cs)
	d.Logger().Debug("device: stage compiled",
		"shader", name,
		"stage", st.Type,
		"entry", ep.Name,
		"words", len(words),
		"resources", len(cs.resources))
	return cs, nil
}

// selectEntryPoint returns the first entry point declared for stage.
func selectEntryPoint(module *ir.Module, stage gpucore.StageFlags) (*ir.EntryPoint, error) {
	want, ok := irStage(stage)
	if !ok {
		return nil, fmt.Errorf("unsupported stage %v", stage)
	}
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Stage == want {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("no @%s entry point in source", stage)
}

func irStage(stage gpucore.StageFlags) (ir.ShaderStage, bool) {
	switch stage {
	case gpucore.StageVertex:
		return ir.StageVertex, true
	case gpucore.StageFragment:
		return ir.StageFragment, true
	case gpucore.StageCompute:
		return ir.StageCompute, true
	}
	return 0, false
}

// spirvWords converts SPIR-V bytes to little-endian 32-bit words.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V output of %d bytes is not word aligned", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}
