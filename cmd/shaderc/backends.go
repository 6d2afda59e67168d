package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shader/backend"
)

type backendReport struct {
	Name      string `yaml:"name" json:"name" toml:"name"`
	Available *bool  `yaml:"available,omitempty" json:"available,omitempty" toml:"available,omitempty"`
	Error     string `yaml:"error,omitempty" json:"error,omitempty" toml:"error,omitempty"`
}

type backendsOutput struct {
	Backends []backendReport `yaml:"backends" json:"backends" toml:"backends"`
}

func newBackendsCmd(a *app) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List registered backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out backendsOutput
			for _, name := range backend.Available() {
				r := backendReport{Name: name}
				if probe {
					b, err := backend.Open(name)
					ok := err == nil
					r.Available = &ok
					if err != nil {
						r.Error = err.Error()
					} else {
						b.Close()
					}
					a.logger.Debug("backends: probed", "backend", name, "available", ok)
				}
				out.Backends = append(out.Backends, r)
			}
			return write(cmd.OutOrStdout(), a.format, out)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "open each backend to check that it works")
	return cmd
}
