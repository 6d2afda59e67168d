package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shader"
)

const spriteDescription = `
name: sprite
stages:
  - stage: vertex
    file: sprite.wgsl
  - stage: fragment
    file: sprite.wgsl
blocks:
  - set: 0
    binding: 0
    name: Globals
    members:
      - {name: offset, type: float4}
samplers:
  - {set: 1, binding: 0, name: tex, type: texture2d}
  - {set: 1, binding: 1, name: samp, type: sampler}
`

const spriteSource = `
struct Globals {
    offset: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var samp: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos.x + globals.offset.x, pos.y + globals.offset.y, 0.0, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

func writeSprite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sprite.wgsl"), []byte(spriteSource), 0o644))
	path := filepath.Join(dir, "sprite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(spriteDescription), 0o644))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Cleanup(func() { shader.SetLogger(nil) })

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestReflectYAML(t *testing.T) {
	path := writeSprite(t)

	stdout, stderr, err := run(t, "reflect", "--backend", "software", "--no-validate", path)
	require.NoError(t, err, stderr)

	var out reflectOutput
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Shaders, 1)

	r := out.Shaders[0]
	assert.Equal(t, "sprite", r.Name)
	require.Len(t, r.Stages, 2)
	assert.Equal(t, "vs_main", r.Stages[0].EntryPoint)
	assert.Equal(t, "fs_main", r.Stages[1].EntryPoint)
	assert.Len(t, r.Inputs, 2)
	require.Len(t, r.Blocks, 1)
	assert.Equal(t, "uniform-buffer", r.Blocks[0].Type)
	assert.Len(t, r.Samplers, 2)
	assert.Equal(t, []setReport{
		{Set: 0, Bindings: []uint32{0}},
		{Set: 1, Bindings: []uint32{0, 1}},
	}, r.Sets)
}

func TestReflectJSONReportsFailures(t *testing.T) {
	good := writeSprite(t)
	bad := filepath.Join(t.TempDir(), "missing.yaml")

	stdout, stderr, err := run(t, "reflect", "-b", "software", "--no-validate", "-f", "json", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 descriptions failed")
	assert.Contains(t, stderr, "missing.yaml")

	var out reflectOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Shaders, 1)
	assert.Equal(t, good, out.Shaders[0].File)
}

func TestReflectTOML(t *testing.T) {
	path := writeSprite(t)
	stdout, stderr, err := run(t, "reflect", "-b", "software", "--no-validate", "-f", "toml", path)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "[[shaders]]")
	assert.Contains(t, stdout, "sprite")
	assert.Contains(t, stdout, "[[shaders.sets]]")
}

func TestBackends(t *testing.T) {
	stdout, _, err := run(t, "backends", "-f", "json")
	require.NoError(t, err)

	var out backendsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	var names []string
	for _, b := range out.Backends {
		names = append(names, b.Name)
		assert.Nil(t, b.Available, "availability is only reported with --probe")
	}
	assert.Contains(t, names, "software")
}

func TestBackendsProbe(t *testing.T) {
	stdout, _, err := run(t, "backends", "--probe")
	require.NoError(t, err)

	var out backendsOutput
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	for _, b := range out.Backends {
		require.NotNil(t, b.Available, b.Name)
		if b.Name == "software" {
			assert.True(t, *b.Available)
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	_, _, err := run(t, "backends", "--format", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestUnknownBackend(t *testing.T) {
	_, _, err := run(t, "reflect", "--backend", "metal", writeSprite(t))
	assert.Error(t, err)
}
