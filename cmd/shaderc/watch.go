package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/reload"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch file",
		Short: "Recompile a description whenever it or its sources change",
		Long: `watch compiles the description once, then recompiles it after every change to
the description or its stage files and prints the new reflection. A failed
compile is reported and the last good shader is kept. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			path := args[0]
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			show := func(s *shader.Shader) {
				r := newReport(path, s.MustGPUShader())
				if err := write(out, a.format, reflectOutput{Shaders: []report{r}}); err != nil {
					fmt.Fprintln(errOut, err)
				}
			}

			w, err := reload.New(path, dev,
				reload.WithDebounce(debounce),
				reload.WithLogger(a.logger),
				reload.OnReload(show),
				reload.OnError(func(err error) { fmt.Fprintln(errOut, err) }),
			)
			if err != nil {
				return err
			}
			defer w.Close()
			w.Use(show)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", reload.DefaultDebounce, "quiet period before recompiling")
	return cmd
}
