// Command shaderc compiles shader descriptions and prints their reflected
// resource interface.
//
//	shaderc reflect shaders/*.yaml
//	shaderc reflect --format json --backend software sprite.toml
//	shaderc watch shaders/sprite.yaml
//	shaderc backends --probe
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/device"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	backend    string
	verbose    bool
	noValidate bool
	format     string
	jobs       int

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shaderc",
		Short: "Compile and reflect WGSL shader descriptions",
		Long: `shaderc loads YAML or TOML shader descriptions, compiles every stage on a
backend device and prints the reflected bindings, inputs and uniform blocks.

Backends are chosen by name; an empty --backend picks the best available one
(vulkan, then software).`,
		Version:       shader.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseFormat(a.format); err != nil {
				return err
			}
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			shader.SetLogger(a.logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.backend, "backend", "b", "", "backend name (default: best available)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.noValidate, "no-validate", false, "skip IR validation before code generation")
	flags.StringVarP(&a.format, "format", "f", "yaml", "output format: yaml, json or toml")
	flags.IntVarP(&a.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "number of descriptions compiled in parallel")

	root.AddCommand(newReflectCmd(a), newWatchCmd(a), newBackendsCmd(a))
	return root
}

// openDevice opens the device selected by the persistent flags.
func (a *app) openDevice() (*device.Device, error) {
	return device.Open(a.backend,
		device.WithValidation(!a.noValidate),
		device.WithLogger(a.logger),
	)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shaderc:", err)
		os.Exit(1)
	}
}
