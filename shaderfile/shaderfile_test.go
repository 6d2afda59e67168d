package shaderfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/shader"
)

const spriteYAML = `
name: sprite
stages:
  - stage: vertex
    source: "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }"
  - stage: fragment
    source: "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(); }"
attributes:
  - name: pos
    type: float3
    location: 0
  - name: color
    type: float4
    normalized: true
    location: 1
blocks:
  - set: 0
    binding: 0
    name: Globals
    members:
      - name: mvp
        type: mat4
      - name: lights
        type: float4
        count: 4
samplers:
  - set: 1
    binding: 0
    name: albedo
    type: texture2d
  - set: 1
    binding: 1
    name: albedoSampler
    type: sampler
`

const spriteTOML = `
name = "sprite"

[[stages]]
stage = "vertex"
source = "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }"

[[stages]]
stage = "fragment"
source = "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(); }"

[[attributes]]
name = "pos"
type = "float3"
location = 0

[[attributes]]
name = "color"
type = "float4"
normalized = true
location = 1

[[blocks]]
set = 0
binding = 0
name = "Globals"

[[blocks.members]]
name = "mvp"
type = "mat4"

[[blocks.members]]
name = "lights"
type = "float4"
count = 4

[[samplers]]
set = 1
binding = 0
name = "albedo"
type = "texture2d"

[[samplers]]
set = 1
binding = 1
name = "albedoSampler"
type = "sampler"
`

func TestDecodeYAMLAndTOMLAgree(t *testing.T) {
	fromYAML, err := Decode(strings.NewReader(spriteYAML), FormatYAML, "")
	if err != nil {
		t.Fatalf("Decode(yaml) error = %v", err)
	}
	fromTOML, err := Decode(strings.NewReader(spriteTOML), FormatTOML, "")
	if err != nil {
		t.Fatalf("Decode(toml) error = %v", err)
	}
	if diff := cmp.Diff(fromYAML, fromTOML); diff != "" {
		t.Errorf("YAML and TOML descriptions differ (-yaml +toml):\n%s", diff)
	}

	if fromYAML.Stages[1].Stage != shader.StageFragment {
		t.Errorf("stage 1 = %v, want fragment", fromYAML.Stages[1].Stage)
	}
	if got := fromYAML.Blocks[0].Members[1]; got.Type != shader.TypeFloat4 || got.Count != 4 {
		t.Errorf("member = %+v", got)
	}
	if got := fromYAML.Samplers[0].Type; got != shader.TypeTexture2D {
		t.Errorf("sampler type = %v, want texture2d", got)
	}
	if !fromYAML.Attributes[1].IsNormalized {
		t.Error("attribute color should be normalized")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	want, err := Decode(strings.NewReader(spriteYAML), FormatYAML, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, format, want); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(&buf, format, "")
			if err != nil {
				t.Fatalf("Decode() error = %v\n%s", err, buf.String())
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"unknown key", FormatYAML, "name: s\ncolour: red\nstages:\n  - {stage: vertex, source: x}\n"},
		{"unknown stage", FormatYAML, "name: s\nstages:\n  - {stage: geometry, source: x}\n"},
		{"unknown type", FormatYAML, "name: s\nstages:\n  - {stage: vertex, source: x}\nattributes:\n  - {name: p, type: float5}\n"},
		{"no stages", FormatYAML, "name: s\n"},
		{"no source", FormatTOML, "name = \"s\"\n[[stages]]\nstage = \"vertex\"\n"},
		{"both source and file", FormatYAML, "name: s\nstages:\n  - {stage: vertex, source: x, file: /tmp/x.wgsl}\n"},
		{"relative file without dir", FormatYAML, "name: s\nstages:\n  - {stage: vertex, file: x.wgsl}\n"},
		{"toml unknown key", FormatTOML, "name = \"s\"\nextra = 1\n[[stages]]\nstage = \"vertex\"\nsource = \"x\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format, "")
			if !errors.Is(err, shader.ErrInvalidDescription) {
				t.Errorf("Decode() error = %v, want ErrInvalidDescription", err)
			}
		})
	}
}

func TestOpenResolvesStageFiles(t *testing.T) {
	dir := t.TempDir()
	const src = "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }\n"
	writeFile(t, filepath.Join(dir, "wgsl", "quad.wgsl"), src)
	writeFile(t, filepath.Join(dir, "quad.yaml"), "name: quad\nstages:\n  - stage: vertex\n    file: wgsl/quad.wgsl\n")

	f, err := Open(filepath.Join(dir, "quad.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if f.Info.Stages[0].Source != src {
		t.Errorf("stage source = %q, want file contents", f.Info.Stages[0].Source)
	}
	want := []string{filepath.Join(dir, "wgsl", "quad.wgsl")}
	if diff := cmp.Diff(want, f.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}

	info, err := Load(filepath.Join(dir, "quad.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(f.Info, info); diff != "" {
		t.Errorf("Load and Open disagree:\n%s", diff)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(filepath.Join(dir, "shader.json")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Open(.json) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want os.ErrNotExist", err)
	}

	path := filepath.Join(dir, "dangling.yaml")
	writeFile(t, path, "name: d\nstages:\n  - stage: fragment\n    file: nowhere.wgsl\n")
	if _, err := Open(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(dangling) error = %v, want os.ErrNotExist", err)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.yaml", FormatYAML, false},
		{"a.YML", FormatYAML, false},
		{"dir/a.toml", FormatTOML, false},
		{"a.wgsl", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FormatOf(%q) = %v, %v", tt.path, got, err)
		}
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}
