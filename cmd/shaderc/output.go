package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shader"
)

type outputFormat string

const (
	formatYAML outputFormat = "yaml"
	formatJSON outputFormat = "json"
	formatTOML outputFormat = "toml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case formatYAML, formatJSON, formatTOML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want yaml, json or toml)", s)
}

func write(w io.Writer, format string, v any) error {
	f, err := parseFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatTOML:
		return toml.NewEncoder(w).Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}

// report is the printable reflection of one compiled shader.
type report struct {
	File     string          `yaml:"file" json:"file" toml:"file"`
	Name     string          `yaml:"name" json:"name" toml:"name"`
	Stages   []stageReport   `yaml:"stages" json:"stages" toml:"stages"`
	Inputs   []inputReport   `yaml:"inputs,omitempty" json:"inputs,omitempty" toml:"inputs,omitempty"`
	Blocks   []blockReport   `yaml:"blocks,omitempty" json:"blocks,omitempty" toml:"blocks,omitempty"`
	Samplers []samplerReport `yaml:"samplers,omitempty" json:"samplers,omitempty" toml:"samplers,omitempty"`
	Sets     []setReport     `yaml:"sets,omitempty" json:"sets,omitempty" toml:"sets,omitempty"`
}

type stageReport struct {
	Stage      string   `yaml:"stage" json:"stage" toml:"stage"`
	EntryPoint string   `yaml:"entry_point" json:"entry_point" toml:"entry_point"`
	Bindings   []string `yaml:"bindings,omitempty" json:"bindings,omitempty" toml:"bindings,omitempty"`
}

type inputReport struct {
	Name     string `yaml:"name" json:"name" toml:"name"`
	Location uint32 `yaml:"location" json:"location" toml:"location"`
	Type     string `yaml:"type" json:"type" toml:"type"`
	Size     uint32 `yaml:"size" json:"size" toml:"size"`
}

type blockReport struct {
	Set        uint32         `yaml:"set" json:"set" toml:"set"`
	Binding    uint32         `yaml:"binding" json:"binding" toml:"binding"`
	Name       string         `yaml:"name" json:"name" toml:"name"`
	Type       string         `yaml:"type" json:"type" toml:"type"`
	Size       uint32         `yaml:"size" json:"size" toml:"size"`
	Visibility string         `yaml:"visibility" json:"visibility" toml:"visibility"`
	Members    []memberReport `yaml:"members,omitempty" json:"members,omitempty" toml:"members,omitempty"`
}

type memberReport struct {
	Name   string `yaml:"name" json:"name" toml:"name"`
	Type   string `yaml:"type" json:"type" toml:"type"`
	Offset uint32 `yaml:"offset" json:"offset" toml:"offset"`
	Size   uint32 `yaml:"size" json:"size" toml:"size"`
	Count  uint32 `yaml:"count,omitempty" json:"count,omitempty" toml:"count,omitempty"`
}

type samplerReport struct {
	Set        uint32 `yaml:"set" json:"set" toml:"set"`
	Binding    uint32 `yaml:"binding" json:"binding" toml:"binding"`
	Name       string `yaml:"name" json:"name" toml:"name"`
	Type       string `yaml:"type" json:"type" toml:"type"`
	Visibility string `yaml:"visibility" json:"visibility" toml:"visibility"`
}

type setReport struct {
	Set      uint32   `yaml:"set" json:"set" toml:"set"`
	Bindings []uint32 `yaml:"bindings" json:"bindings" toml:"bindings"`
}

func newReport(file string, rec *shader.GPUShader) report {
	r := report{File: file, Name: rec.Name}
	for _, st := range rec.GPUStages {
		sr := stageReport{Stage: st.Type.String(), EntryPoint: st.EntryPoint}
		for _, b := range st.Bindings {
			sr.Bindings = append(sr.Bindings, b.String())
		}
		r.Stages = append(r.Stages, sr)
	}
	for _, in := range rec.GPUInputs {
		r.Inputs = append(r.Inputs, inputReport{Name: in.Name, Location: in.Location, Type: in.Type.String(), Size: in.Size})
	}
	for _, b := range rec.GPUBlocks {
		br := blockReport{
			Set: b.Set, Binding: b.Binding, Name: b.Name,
			Type: b.BindingType.String(), Size: b.Size, Visibility: b.Visibility.String(),
		}
		for _, m := range b.Members {
			br.Members = append(br.Members, memberReport{
				Name: m.Name, Type: m.Type.String(), Offset: m.Offset, Size: m.Size, Count: m.Count,
			})
		}
		r.Blocks = append(r.Blocks, br)
	}
	for _, s := range rec.GPUSamplers {
		r.Samplers = append(r.Samplers, samplerReport{
			Set: s.Set, Binding: s.Binding, Name: s.Name,
			Type: s.Type.String(), Visibility: s.Visibility.String(),
		})
	}
	for _, set := range rec.BindingSets() {
		r.Sets = append(r.Sets, setReport{Set: set, Bindings: rec.Bindings[set]})
	}
	return r
}
