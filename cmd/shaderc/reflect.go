package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/shaderfile"
)

type reflectOutput struct {
	Shaders []report `yaml:"shaders" json:"shaders" toml:"shaders"`
}

func newReflectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reflect file...",
		Short: "Compile descriptions and print their reflected interface",
		Long: `reflect compiles every description on one device, in parallel, and prints
the stages, entry points, vertex inputs, uniform blocks, samplers and the
binding table of each. Descriptions that fail are reported on stderr and the
command exits non-zero after printing the ones that compiled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			reports := make([]*report, len(args))
			errs := make([]error, len(args))

			var g errgroup.Group
			g.SetLimit(max(a.jobs, 1))
			for i, path := range args {
				g.Go(func() error {
					info, err := shaderfile.Load(path)
					if err != nil {
						errs[i] = err
						return nil
					}
					s := shader.New(shader.WithDevice(dev))
					if err := s.Initialize(info); err != nil {
						errs[i] = fmt.Errorf("%s: %w", path, err)
						return nil
					}
					defer s.Destroy()

					r := newReport(path, s.MustGPUShader())
					reports[i] = &r
					return nil
				})
			}
			_ = g.Wait()

			var out reflectOutput
			for i, r := range reports {
				if r != nil {
					out.Shaders = append(out.Shaders, *r)
				}
				if errs[i] != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), errs[i])
				}
			}
			if len(out.Shaders) > 0 {
				if err := write(cmd.OutOrStdout(), a.format, out); err != nil {
					return err
				}
			}

			if n := countErrors(errs); n > 0 {
				return fmt.Errorf("%d of %d descriptions failed", n, len(args))
			}
			a.logger.Debug("reflect: done", "files", len(args), "cache", dev.CacheStats())
			return nil
		},
	}
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
