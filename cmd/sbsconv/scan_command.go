package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sbsconv/internal/shot"
	"sbsconv/internal/workflow"
)

type shotJSON struct {
	Name            string  `json:"name"`
	SourcePath      string  `json:"source_path"`
	Frames          int     `json:"frames"`
	Converted       int     `json:"converted"`
	Progress        float64 `json:"progress"`
	Status          string  `json:"status"`
	State           string  `json:"state"`
	Sync            string  `json:"sync"`
	Location        string  `json:"location"`
	Moved           bool    `json:"moved"`
	MovedPath       string  `json:"moved_path,omitempty"`
	Ghost           bool    `json:"ghost,omitempty"`
	NeedsConversion bool    `json:"needs_conversion"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Report per-shot conversion status without converting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if err := cfg.SetRoots(args[0], ""); err != nil {
					return err
				}
			}
			if _, err := ctx.requireSource(); err != nil {
				return err
			}

			var shots []shot.Shot
			err := ctx.withManager(false, nil, func(m *workflow.Manager) error {
				var err error
				shots, err = m.Scan(commandCtx(cmd))
				return err
			})
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]shotJSON, 0, len(shots))
				for _, s := range shots {
					out = append(out, toShotJSON(s))
				}
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			if len(shots) == 0 {
				fmt.Fprintln(w, "No shots found")
				return nil
			}
			fmt.Fprintln(w, renderTable(scanTable(shots)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func scanTable(shots []shot.Shot) tableSpec {
	spec := tableSpec{
		headers: []string{"Shot", "Frames", "SBS", "Status", "State", "Sync", "Location"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	}
	frames, converted, pending := 0, 0, 0
	for _, s := range shots {
		frames += s.FrameCount
		converted += s.ConvertedCount
		if s.NeedsConversion() {
			pending++
		}
		spec.rows = append(spec.rows, []string{
			s.Name,
			strconv.Itoa(s.FrameCount),
			strconv.Itoa(s.ConvertedCount),
			s.StatusLabel(),
			shotState(s),
			s.SyncStatus.String(),
			s.Location.String(),
		})
	}
	spec.footer = []string{
		fmt.Sprintf("%d shots", len(shots)),
		strconv.Itoa(frames),
		strconv.Itoa(converted),
		fmt.Sprintf("%d need conversion", pending),
	}
	return spec
}

func shotState(s shot.Shot) string {
	switch {
	case s.Ghost:
		return "moved (source gone)"
	case s.NeedsConversion():
		return "needs conversion"
	case s.FrameCount == 0:
		return "empty"
	case s.IsMoved:
		return "has SBS (moved)"
	default:
		return "has SBS"
	}
}

func toShotJSON(s shot.Shot) shotJSON {
	return shotJSON{
		Name:            s.Name,
		SourcePath:      s.SourcePath,
		Frames:          s.FrameCount,
		Converted:       s.ConvertedCount,
		Progress:        s.Progress(),
		Status:          s.StatusLabel(),
		State:           shotState(s),
		Sync:            s.SyncStatus.String(),
		Location:        s.Location.String(),
		Moved:           s.IsMoved,
		MovedPath:       s.MovedPath,
		Ghost:           s.Ghost,
		NeedsConversion: s.NeedsConversion(),
	}
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
