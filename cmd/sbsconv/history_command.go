package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sbsconv/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.RecentRuns(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(runsTable(runs)))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPromotionsCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and its failed frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				failures, err := store.Failures(commandCtx(cmd), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Status:   %s\n", run.Status)
				fmt.Fprintf(out, "Source:   %s\n", run.SourceRoot)
				fmt.Fprintf(out, "Started:  %s\n", formatHistoryTime(run.StartedAt))
				fmt.Fprintf(out, "Finished: %s\n", formatHistoryTime(run.FinishedAt))
				fmt.Fprintf(out, "Frames:   %d total, %d converted, %d failed, %d skipped\n",
					run.Total, run.Done, run.Failed, run.Skipped)
				if len(failures) == 0 {
					return nil
				}
				spec := tableSpec{headers: []string{"Shot", "Frame", "Error"}}
				for _, f := range failures {
					spec.rows = append(spec.rows, []string{f.Shot, f.Frame, f.Message})
				}
				fmt.Fprintln(out, renderTable(spec))
				return nil
			})
		},
	}
}

func newHistoryPromotionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "List recent promotion attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				promotions, err := store.Promotions(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(promotions) == 0 {
					fmt.Fprintln(out, "No promotions recorded")
					return nil
				}
				spec := tableSpec{headers: []string{"When", "Shot", "Result", "Destination", "Detail"}}
				for _, p := range promotions {
					spec.rows = append(spec.rows, []string{
						formatHistoryTime(p.At), p.Shot, p.Result, p.Destination, p.Message,
					})
				}
				fmt.Fprintln(out, renderTable(spec))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of promotions to list")
	return cmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runsTable(runs []history.Run) tableSpec {
	spec := tableSpec{
		headers: []string{"Run", "Started", "Duration", "Frames", "Done", "Failed", "Skipped", "Status"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	}
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		spec.rows = append(spec.rows, []string{
			r.ID,
			formatHistoryTime(r.StartedAt),
			duration,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Done),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			string(r.Status),
		})
	}
	return spec
}

func formatHistoryTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}
