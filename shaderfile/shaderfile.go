package shaderfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/gpucore"
)

// ErrUnknownFormat is returned for a path whose extension names no format.
var ErrUnknownFormat = errors.New("shaderfile: unknown format")

// Format is a description file encoding.
type Format int

// Supported formats.
const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// stage is a stage entry as written in a file. Exactly one of Source and
// File is set; File is relative to the description's directory.
type stage struct {
	Stage  gpucore.StageFlags `yaml:"stage" toml:"stage"`
	Source string             `yaml:"source,omitempty" toml:"source,omitempty"`
	File   string             `yaml:"file,omitempty" toml:"file,omitempty"`
}

type document struct {
	Name       string                         `yaml:"name" toml:"name"`
	Stages     []stage                        `yaml:"stages" toml:"stages"`
	Attributes []shader.Attribute             `yaml:"attributes,omitempty" toml:"attributes,omitempty"`
	Blocks     []shader.UniformBlock          `yaml:"blocks,omitempty" toml:"blocks,omitempty"`
	Samplers   []shader.UniformSamplerTexture `yaml:"samplers,omitempty" toml:"samplers,omitempty"`
}

// File is a loaded description together with the files it was read from.
type File struct {
	Path string
	Info *shader.Info

	// Sources lists the stage source files referenced by the description,
	// cleaned and in stage order.
	Sources []string
}

// Open reads and validates the description at path. Stage files are
// resolved relative to the directory of path.
func Open(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shaderfile: %w", err)
	}

	doc, err := decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f := &File{Path: filepath.Clean(path)}
	f.Info, f.Sources, err = doc.resolve(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Load is Open without the file bookkeeping.
func Load(path string) (*shader.Info, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	return f.Info, nil
}

// Decode reads one description from r. Stage files are resolved relative
// to dir; with an empty dir every stage must carry inline source.
func Decode(r io.Reader, format Format, dir string) (*shader.Info, error) {
	doc, err := decode(r, format)
	if err != nil {
		return nil, err
	}
	info, _, err := doc.resolve(dir)
	return info, err
}

// Encode writes info to w with every stage source inline.
func Encode(w io.Writer, format Format, info *shader.Info) error {
	doc := document{
		Name:       info.Name,
		Attributes: info.Attributes,
		Blocks:     info.Blocks,
		Samplers:   info.Samplers,
	}
	for _, st := range info.Stages {
		doc.Stages = append(doc.Stages, stage{Stage: st.Stage, Source: st.Source})
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("shaderfile: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(&doc); err != nil {
			return fmt.Errorf("shaderfile: encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, format)
}

func decode(r io.Reader, format Format) (*document, error) {
	var doc document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", shader.ErrInvalidDescription, err)
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: toml: %w", shader.ErrInvalidDescription, err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	return &doc, nil
}

func (doc *document) resolve(dir string) (*shader.Info, []string, error) {
	info := &shader.Info{
		Name:       doc.Name,
		Stages:     make([]shader.ShaderStage, len(doc.Stages)),
		Attributes: doc.Attributes,
		Blocks:     doc.Blocks,
		Samplers:   doc.Samplers,
	}
	var sources []string
	for i, st := range doc.Stages {
		info.Stages[i] = shader.ShaderStage{Stage: st.Stage, Source: st.Source}
		if st.File == "" {
			continue
		}
		if st.Source != "" {
			return nil, nil, fmt.Errorf("%w: stage %d (%v) has both source and file",
				shader.ErrInvalidDescription, i, st.Stage)
		}
		if dir == "" && !filepath.IsAbs(st.File) {
			return nil, nil, fmt.Errorf("%w: stage %d (%v): relative file %q without a base directory",
				shader.ErrInvalidDescription, i, st.Stage, st.File)
		}
		path := st.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("shaderfile: stage %d (%v): %w", i, st.Stage, err)
		}
		info.Stages[i].Source = string(src)
		sources = append(sources, filepath.Clean(path))
	}
	if err := info.Validate(); err != nil {
		return nil, nil, err
	}
	return info, sources, nil
}
