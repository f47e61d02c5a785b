package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sbsconv/internal/converter"
	"sbsconv/internal/deps"
	"sbsconv/internal/events"
	"sbsconv/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var etaWindow int

	cmd := &cobra.Command{
		Use:   "convert [shot...]",
		Short: "Convert outstanding frames (every shot needing conversion when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.requireSource(); err != nil {
				return err
			}
			if etaWindow > 0 {
				ctx.managerOptions = append(ctx.managerOptions, workflow.WithETAWindow(etaWindow))
			}

			out := cmd.OutOrStdout()
			renderer := newProgressRenderer(out, isTerminal(out))
			defer renderer.finish()

			return ctx.withManager(true, []events.Sink{renderer}, func(m *workflow.Manager) error {
				summary, err := m.Convert(commandCtx(cmd), args)
				if err != nil {
					return err
				}
				switch {
				case summary.Canceled:
					return context.Canceled
				case summary.Total == 0:
					fmt.Fprintln(out, "Nothing to convert")
				case summary.Failed > 0:
					return fmt.Errorf("%d of %d frames failed to convert", summary.Failed, summary.Total)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&etaWindow, "eta-window", 0, "Estimate ETA from the last N frames instead of the whole run")
	return cmd
}

func newConvertFrameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert-frame FILE",
		Short: "Convert a single EXR frame to <stem>_SBS.exr beside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve frame path: %w", err)
			}
			binary, err := deps.ResolveConverter(cfg.Converter.Binary)
			if err != nil {
				return err
			}
			client, err := converter.New(binary, converter.Settings{
				Compression: cfg.Converter.Compression,
				PixelType:   cfg.Converter.PixelType,
			})
			if err != nil {
				return err
			}
			dst, err := client.ConvertBeside(commandCtx(cmd), src)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				return fmt.Errorf("convert %s: %w", filepath.Base(src), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dst)
			return nil
		},
	}
}
