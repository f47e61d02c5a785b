package main

import (
	"github.com/spf13/cobra"

	"sbsconv/internal/daemonrun"
	"sbsconv/internal/events"
)

func newLiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Watch the source root, converting and promoting shots until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg.Live.Enabled = true
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderer := newProgressRenderer(out, isTerminal(out))
			defer renderer.finish()
			return daemonrun.Run(commandCtx(cmd), cfg, daemonrun.Options{
				LogLevel:       ctx.flags.logLevel,
				LogFile:        ctx.flags.logFile,
				Sinks:          []events.Sink{renderer},
				ManagerOptions: ctx.managerOptions,
			})
		},
	}
}
