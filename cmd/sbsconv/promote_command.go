package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sbsconv/internal/promotion"
	"sbsconv/internal/workflow"
)

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote [shot...]",
		Short: "Move finished shots into the destination root",
		Long: "Promote moves each fully converted, fully synced shot whose renders have gone idle\n" +
			"into <dest>/<shot>_SBS. Named shots that are not ready are reported as ineligible.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.requireSource()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Paths.DestinationRoot) == "" {
				return errors.New("destination root not set; pass --dest or set paths.destination_root")
			}

			var results []promotion.Result
			err = ctx.withManager(false, nil, func(m *workflow.Manager) error {
				var err error
				results, err = m.Promote(commandCtx(cmd), args)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No shots ready to promote")
				return nil
			}
			fmt.Fprintln(out, renderTable(promotionTable(results)))

			failed := 0
			for _, r := range results {
				if r.Outcome == promotion.Failed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d promotions failed", failed)
			}
			return nil
		},
	}
}

func promotionTable(results []promotion.Result) tableSpec {
	spec := tableSpec{headers: []string{"Shot", "Result", "Detail"}}
	for _, r := range results {
		detail := r.Message
		if r.Outcome == promotion.Promoted {
			detail = r.Destination
		}
		spec.rows = append(spec.rows, []string{r.Shot, string(r.Outcome), detail})
	}
	return spec
}
