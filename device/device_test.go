// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/backend"
	"github.com/gogpu/shader/gpucore"
)

const paramsSource = `
struct Params {
    color: vec4<f32>,
    scale: f32,
}

@group(0) @binding(0) var<uniform> params: Params;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos.x * params.scale, pos.y * params.scale, uv.x, 1.0);
    out.color = params.color;
    return out;
}

@fragment
fn fs_main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(color.x, color.y, color.z, params.color.w);
}
`

const texturedFragment = `
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var samp: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const plainVertex = `
@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos.x, pos.y, pos.z, 1.0);
}
`

const unusedUniformVertex = `
struct Camera {
    offset: vec4<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos.x, pos.y, pos.z, 1.0);
}
`

const samplerAtUniformSlot = `
@group(0) @binding(0) var samp: sampler;
@group(0) @binding(1) var tex: texture_2d<f32>;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const highSetFragment = `
@group(2) @binding(3) var tex: texture_2d<f32>;
@group(2) @binding(4) var samp: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const helperFragment = `
@group(0) @binding(2) var tex: texture_2d<f32>;
@group(0) @binding(3) var samp: sampler;

fn shade(uv: vec2<f32>) -> vec4<f32> {
    return textureSample(tex, samp, uv);
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return shade(uv);
}
`

func newTestDevice(t *testing.T, opts ...Option) (*Device, *backend.SoftwareBackend) {
	t.Helper()
	soft := backend.NewSoftwareBackend()
	dev, err := New(soft, append([]Option{WithValidation(false)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(dev.Close)
	return dev, soft
}

func paramsInfo() *shader.Info {
	return &shader.Info{
		Name: "params",
		Stages: []shader.ShaderStage{
			{Stage: gpucore.StageVertex, Source: paramsSource},
			{Stage: gpucore.StageFragment, Source: paramsSource},
		},
		Blocks: []shader.UniformBlock{
			{Set: 0, Binding: 0, Name: "Params", Members: []shader.Uniform{
				{Name: "color", Type: shader.TypeFloat4},
				{Name: "scale", Type: shader.TypeFloat},
			}},
		},
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilBackend)

	dev, soft := newTestDevice(t)
	assert.Same(t, soft, dev.Backend())
	assert.NotNil(t, dev.Logger())
}

func TestOpen(t *testing.T) {
	dev, err := Open(backend.BackendSoftware)
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, backend.BackendSoftware, dev.Backend().Name())

	_, err = Open("nonexistent")
	assert.ErrorIs(t, err, backend.ErrBackendNotAvailable)
}

func TestCreateShaderResources(t *testing.T) {
	dev, soft := newTestDevice(t)
	rec := shader.NewGPUShader(paramsInfo())

	require.NoError(t, dev.CreateShaderResources(rec))
	require.True(t, rec.Complete())

	// Two modules, one layout for set 0, one pipeline layout.
	assert.Equal(t, backend.LiveCounts{ShaderModules: 2, BindGroupLayouts: 1, PipelineLayouts: 1}, soft.Live())

	assert.Equal(t, "vs_main", rec.GPUStages[0].EntryPoint)
	assert.Equal(t, "fs_main", rec.GPUStages[1].EntryPoint)

	wantInputs := []shader.GPUInput{
		{Name: "pos", Location: 0, Type: shader.TypeFloat2, Size: 8},
		{Name: "uv", Location: 1, Type: shader.TypeFloat2, Size: 8},
	}
	if diff := cmp.Diff(wantInputs, rec.GPUInputs); diff != "" {
		t.Errorf("GPUInputs mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, rec.GPUStages[0].Attrs, 2)
	assert.Empty(t, rec.GPUStages[1].Attrs)

	require.Len(t, rec.GPUBlocks, 1)
	blk := rec.GPUBlocks[0]
	assert.Equal(t, "params", blk.Name)
	assert.Equal(t, "Params", blk.TypeName)
	assert.Equal(t, gpucore.BindingTypeUniformBuffer, blk.BindingType)
	assert.Equal(t, gpucore.StageVertex|gpucore.StageFragment, blk.Visibility)
	assert.NotZero(t, blk.Size)

	require.Len(t, rec.GPUUniforms, 2)
	assert.Equal(t, "color", rec.GPUUniforms[0].Name)
	assert.Equal(t, shader.TypeFloat4, rec.GPUUniforms[0].Type)
	assert.Equal(t, "scale", rec.GPUUniforms[1].Name)
	assert.Equal(t, shader.TypeFloat, rec.GPUUniforms[1].Type)

	assert.Equal(t, map[uint32][]uint32{0: {0}}, rec.Bindings)
	assert.Equal(t, []gpucore.ResourceBinding{{Set: 0, Binding: 0}}, rec.GPUStages[0].Bindings)
	assert.Equal(t, []gpucore.ResourceBinding{{Set: 0, Binding: 0}}, rec.GPUStages[1].Bindings)

	// The stage modules carry SPIR-V and the selected entry point.
	h := rec.GPUStages[1].GPUShader.MustGet()
	mod, err := soft.ShaderModule(h)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x07230203), mod.SPIRV[0])
	assert.Equal(t, "fs_main", mod.EntryPoint)
	assert.Equal(t, gpucore.StageFragment, mod.Stage)

	pl, err := soft.PipelineLayout(rec.GPUProgram.MustGet())
	require.NoError(t, err)
	assert.Equal(t, []gpucore.Handle{rec.GPULayouts[0]}, pl.BindGroupLayouts)

	require.NoError(t, dev.ReleaseShaderResources(rec))
	assert.Zero(t, soft.Live().Total())
	assert.True(t, rec.Empty())
	assert.Empty(t, rec.Bindings)
}

func TestCreateWithDefaultOptions(t *testing.T) {
	// Default options validate the IR and the generated SPIR-V.
	soft := backend.NewSoftwareBackend()
	dev, err := New(soft)
	require.NoError(t, err)
	defer dev.Close()
	require.True(t, dev.opts.validate)

	for _, info := range []*shader.Info{
		paramsInfo(),
		{Name: "helper", Stages: []shader.ShaderStage{{Stage: gpucore.StageFragment, Source: helperFragment}}},
	} {
		rec := shader.NewGPUShader(info)
		require.NoError(t, dev.CreateShaderResources(rec), info.Name)
		for i := range rec.GPUStages {
			mod, err := soft.ShaderModule(rec.GPUStages[i].GPUShader.MustGet())
			require.NoError(t, err)
			assert.Equal(t, uint32(0x07230203), mod.SPIRV[0], "SPIR-V magic")
		}
		require.NoError(t, dev.ReleaseShaderResources(rec))
	}
	assert.Zero(t, soft.Live().Total())
}

func TestCreateTexturedShader(t *testing.T) {
	dev, soft := newTestDevice(t)
	rec := shader.NewGPUShader(&shader.Info{
		Name: "textured",
		Stages: []shader.ShaderStage{
			{Stage: gpucore.StageVertex, Source: plainVertex},
			{Stage: gpucore.StageFragment, Source: texturedFragment},
		},
	})
	require.NoError(t, dev.CreateShaderResources(rec))

	want := []shader.GPUSampler{
		{
			Set: 1, Binding: 0, Name: "tex", Type: shader.TypeTexture2D,
			BindingType:   gpucore.BindingTypeSampledTexture,
			ViewDimension: gpucore.TextureDimension2D,
			SampleKind:    gpucore.SampleKindFloat,
			Visibility:    gpucore.StageFragment,
		},
		{
			Set: 1, Binding: 1, Name: "samp", Type: shader.TypeSampler,
			BindingType: gpucore.BindingTypeSampler,
			Visibility:  gpucore.StageFragment,
		},
	}
	if diff := cmp.Diff(want, rec.GPUSamplers); diff != "" {
		t.Errorf("GPUSamplers mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, rec.GPUBlocks)
	assert.Equal(t, map[uint32][]uint32{1: {0, 1}}, rec.Bindings)

	// Set 0 is unused but still gets an (empty) layout.
	require.Len(t, rec.GPULayouts, 2)
	empty, err := soft.BindGroupLayout(rec.GPULayouts[0])
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
	set1, err := soft.BindGroupLayout(rec.GPULayouts[1])
	require.NoError(t, err)
	assert.Len(t, set1.Entries, 2)

	require.NoError(t, dev.ReleaseShaderResources(rec))
	assert.Zero(t, soft.Live().Total())
}

func TestCreateHighSetOnly(t *testing.T) {
	dev, soft := newTestDevice(t)
	rec := shader.NewGPUShader(&shader.Info{
		Name:   "high-set",
		Stages: []shader.ShaderStage{{Stage: gpucore.StageFragment, Source: highSetFragment}},
	})
	require.NoError(t, dev.CreateShaderResources(rec))

	assert.Equal(t, []uint32{2}, rec.BindingSets())
	assert.Equal(t, []uint32{3, 4}, rec.Bindings[2])
	assert.Len(t, rec.GPULayouts, 3)
	assert.Equal(t, 3, soft.Live().BindGroupLayouts)

	require.NoError(t, dev.ReleaseShaderResources(rec))
	assert.Zero(t, soft.Live().Total())
}

func TestResourceUsageFollowsCalls(t *testing.T) {
	dev, _ := newTestDevice(t)
	rec := shader.NewGPUShader(&shader.Info{
		Name:   "helper",
		Stages: []shader.ShaderStage{{Stage: gpucore.StageFragment, Source: helperFragment}},
	})
	require.NoError(t, dev.CreateShaderResources(rec))
	defer dev.ReleaseShaderResources(rec)

	assert.Equal(t, []gpucore.ResourceBinding{{Set: 0, Binding: 2}, {Set: 0, Binding: 3}}, rec.GPUStages[0].Bindings)
}

func TestUnusedResourceVisibility(t *testing.T) {
	dev, _ := newTestDevice(t)
	rec := shader.NewGPUShader(&shader.Info{
		Name: "unused",
		Stages: []shader.ShaderStage{
			{Stage: gpucore.StageVertex, Source: unusedUniformVertex},
			{Stage: gpucore.StageFragment, Source: texturedFragment},
		},
	})
	require.NoError(t, dev.CreateShaderResources(rec))
	defer dev.ReleaseShaderResources(rec)

	// Declared but never referenced: still laid out, visible to the declaring stage.
	require.Len(t, rec.GPUBlocks, 1)
	assert.Equal(t, "camera", rec.GPUBlocks[0].Name)
	assert.Equal(t, gpucore.StageVertex, rec.GPUBlocks[0].Visibility)
	assert.Empty(t, rec.GPUStages[0].Bindings)
	assert.Equal(t, []uint32{0, 1}, rec.BindingSets())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name      string
		stages    []shader.ShaderStage
		wantIndex int
		wantStage gpucore.StageFlags
		wantPhase shader.Phase
	}{
		{
			name: "syntax error in fragment",
			stages: []shader.ShaderStage{
				{Stage: gpucore.StageVertex, Source: plainVertex},
				{Stage: gpucore.StageFragment, Source: "@fragment fn fs_main( -> {"},
			},
			wantIndex: 1,
			wantStage: gpucore.StageFragment,
			wantPhase: shader.PhaseParse,
		},
		{
			name: "missing entry point",
			stages: []shader.ShaderStage{
				{Stage: gpucore.StageCompute, Source: plainVertex},
			},
			wantIndex: 0,
			wantStage: gpucore.StageCompute,
			wantPhase: shader.PhaseEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, soft := newTestDevice(t)
			rec := shader.NewGPUShader(&shader.Info{Name: "broken", Stages: tt.stages})

			err := dev.CreateShaderResources(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, shader.ErrShaderCompilation)

			var cerr *shader.ShaderCompilationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "broken", cerr.Shader)
			assert.Equal(t, tt.wantIndex, cerr.StageIndex)
			assert.Equal(t, tt.wantStage, cerr.Stage)
			assert.Equal(t, tt.wantPhase, cerr.Phase)

			assert.True(t, rec.Empty())
			assert.Zero(t, soft.Live().Total())
		})
	}
}

func TestLinkConflict(t *testing.T) {
	dev, soft := newTestDevice(t)
	// The vertex stage binds a uniform at @group(0) @binding(0), the
	// fragment stage a sampler.
	rec := shader.NewGPUShader(&shader.Info{
		Name: "conflict",
		Stages: []shader.ShaderStage{
			{Stage: gpucore.StageVertex, Source: paramsSource},
			{Stage: gpucore.StageFragment, Source: samplerAtUniformSlot},
		},
	})

	err := dev.CreateShaderResources(rec)
	var cerr *shader.ShaderCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, shader.PhaseLink, cerr.Phase)
	assert.Equal(t, -1, cerr.StageIndex)
	assert.True(t, rec.Empty())
	assert.Zero(t, soft.Live().Total())
}

func TestDescriptionConflict(t *testing.T) {
	dev, _ := newTestDevice(t)
	info := &shader.Info{
		Name:   "described",
		Stages: []shader.ShaderStage{{Stage: gpucore.StageFragment, Source: texturedFragment}},
		// A uniform block where the source binds a texture.
		Blocks: []shader.UniformBlock{{Set: 1, Binding: 0, Name: "Wrong"}},
	}
	err := dev.CreateShaderResources(shader.NewGPUShader(info))

	var cerr *shader.ShaderCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, shader.PhaseLink, cerr.Phase)
}

func TestDescriptionNotDeclared(t *testing.T) {
	tests := []struct {
		name string
		info *shader.Info
		want string
	}{
		{
			name: "block",
			info: &shader.Info{
				Name:   "described",
				Stages: []shader.ShaderStage{{Stage: gpucore.StageVertex, Source: plainVertex}},
				Blocks: []shader.UniformBlock{{Set: 0, Binding: 0, Name: "Globals"}},
			},
			want: `block "Globals"`,
		},
		{
			name: "sampler",
			info: &shader.Info{
				Name: "described",
				Stages: []shader.ShaderStage{
					{Stage: gpucore.StageVertex, Source: plainVertex},
					{Stage: gpucore.StageFragment, Source: texturedFragment},
				},
				Samplers: []shader.UniformSamplerTexture{{Set: 1, Binding: 5, Name: "shadow", Type: shader.TypeSampler}},
			},
			want: `sampler "shadow"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, soft := newTestDevice(t)
			rec := shader.NewGPUShader(tt.info)

			err := dev.CreateShaderResources(rec)
			var cerr *shader.ShaderCompilationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, shader.PhaseLink, cerr.Phase)
			assert.Equal(t, gpucore.StageNone, cerr.Stage)
			assert.ErrorContains(t, err, tt.want)
			assert.True(t, rec.Empty())
			assert.Empty(t, rec.Bindings)
			assert.Zero(t, soft.Live().Total())
		})
	}
}

// failingBackend fails the n-th object creation.
type failingBackend struct {
	*backend.SoftwareBackend
	mu    sync.Mutex
	calls int
	failN int
}

var errInjected = errors.New("injected failure")

func (b *failingBackend) tick() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls == b.failN {
		return errInjected
	}
	return nil
}

func (b *failingBackend) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.Handle, error) {
	if err := b.tick(); err != nil {
		return gpucore.InvalidHandle, err
	}
	return b.SoftwareBackend.CreateShaderModule(desc)
}

func (b *failingBackend) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.Handle, error) {
	if err := b.tick(); err != nil {
		return gpucore.InvalidHandle, err
	}
	return b.SoftwareBackend.CreateBindGroupLayout(desc)
}

func (b *failingBackend) CreatePipelineLayout(desc *gpucore.PipelineLayoutDesc) (gpucore.Handle, error) {
	if err := b.tick(); err != nil {
		return gpucore.InvalidHandle, err
	}
	return b.SoftwareBackend.CreatePipelineLayout(desc)
}

func TestCreateRollback(t *testing.T) {
	// 2 modules + 2 layouts (set 0 empty, set 1 textured) + 1 pipeline layout.
	const creations = 5
	for n := 1; n <= creations; n++ {
		t.Run(fmt.Sprintf("fail_%d", n), func(t *testing.T) {
			fb := &failingBackend{SoftwareBackend: backend.NewSoftwareBackend(), failN: n}
			dev, err := New(fb, WithValidation(false))
			require.NoError(t, err)
			defer dev.Close()

			rec := shader.NewGPUShader(&shader.Info{
				Name: "rollback",
				Stages: []shader.ShaderStage{
					{Stage: gpucore.StageVertex, Source: plainVertex},
					{Stage: gpucore.StageFragment, Source: texturedFragment},
				},
			})
			err = dev.CreateShaderResources(rec)
			require.ErrorIs(t, err, errInjected)

			var cerr *shader.ShaderCompilationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, shader.PhaseBackend, cerr.Phase)

			assert.True(t, rec.Empty())
			assert.Empty(t, rec.Bindings)
			assert.Zero(t, fb.Live().Total(), "live objects after rollback")
		})
	}
}

func TestCreateRecordInUse(t *testing.T) {
	dev, _ := newTestDevice(t)
	rec := shader.NewGPUShader(paramsInfo())
	require.NoError(t, dev.CreateShaderResources(rec))
	defer dev.ReleaseShaderResources(rec)

	assert.ErrorIs(t, dev.CreateShaderResources(rec), ErrRecordInUse)
	assert.ErrorIs(t, dev.CreateShaderResources(nil), ErrNilRecord)
}

func TestReleaseTwice(t *testing.T) {
	dev, soft := newTestDevice(t)
	rec := shader.NewGPUShader(paramsInfo())
	require.NoError(t, dev.CreateShaderResources(rec))

	require.NoError(t, dev.ReleaseShaderResources(rec))
	// The handles are gone, so a second release has nothing to destroy.
	require.NoError(t, dev.ReleaseShaderResources(rec))
	assert.Zero(t, soft.Live().Total())
}

func TestReleaseJoinsErrors(t *testing.T) {
	dev, soft := newTestDevice(t)
	rec := shader.NewGPUShader(paramsInfo())
	require.NoError(t, dev.CreateShaderResources(rec))

	// Destroy one module behind the device's back.
	require.NoError(t, soft.DestroyShaderModule(rec.GPUStages[0].GPUShader.MustGet()))

	err := dev.ReleaseShaderResources(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpucore.ErrStaleHandle)
	// Everything else was still released.
	assert.Zero(t, soft.Live().Total())
	assert.True(t, rec.Empty())
}

func TestStageCache(t *testing.T) {
	dev, soft := newTestDevice(t)

	a := shader.NewGPUShader(paramsInfo())
	b := shader.NewGPUShader(paramsInfo())
	require.NoError(t, dev.CreateShaderResources(a))
	require.NoError(t, dev.CreateShaderResources(b))

	stats := dev.CacheStats()
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 2, stats.Len)

	// Records never share handles even when they share compiled stages.
	assert.NotEqual(t, a.GPUProgram.MustGet(), b.GPUProgram.MustGet())
	assert.Equal(t, 4, soft.Live().ShaderModules)

	require.NoError(t, dev.ReleaseShaderResources(a))
	require.NoError(t, dev.ReleaseShaderResources(b))
}

func TestStageCacheDisabled(t *testing.T) {
	dev, _ := newTestDevice(t, WithCacheSize(0))
	rec := shader.NewGPUShader(paramsInfo())
	require.NoError(t, dev.CreateShaderResources(rec))
	defer dev.ReleaseShaderResources(rec)

	assert.Zero(t, dev.CacheStats().Len)
}

func TestClosedDevice(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.Close()
	dev.Close() // idempotent

	err := dev.CreateShaderResources(shader.NewGPUShader(paramsInfo()))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentCreate(t *testing.T) {
	dev, soft := newTestDevice(t)

	const n = 8
	recs := make([]*shader.GPUShader, n)
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range recs {
		recs[i] = shader.NewGPUShader(paramsInfo())
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dev.CreateShaderResources(recs[i])
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "record %d", i)
	}
	assert.Equal(t, n, soft.Live().PipelineLayouts)

	for _, rec := range recs {
		require.NoError(t, dev.ReleaseShaderResources(rec))
	}
	assert.Zero(t, soft.Live().Total())
}
