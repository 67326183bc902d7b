package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/store"
)

var evaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "Inspect stored evaluations",
}

// -- evaluations list --

var evaluationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		site, _ := cmd.Flags().GetString("site")
		protocol, _ := cmd.Flags().GetString("protocol")
		limit, _ := cmd.Flags().GetInt("limit")

		evals, err := st.ListEvaluations(ctx, store.EvaluationFilter{
			SiteID:     site,
			ProtocolID: protocol,
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "evaluations list")
		}
		if len(evals) == 0 {
			fmt.Fprintln(os.Stderr, "No evaluations found.")
			return nil
		}

		formatEvaluationsList(os.Stdout, evals)
		return nil
	},
}

// -- evaluations show --

var evaluationsShowCmd = &cobra.Command{
	Use:   "show <evaluation-id>",
	Short: "Show a stored evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := st.GetEvaluation(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "evaluations show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		}
		formatEvaluation(os.Stdout, ev)
		return nil
	},
}

func init() {
	evaluationsListCmd.Flags().String("site", "", "filter by site ID")
	evaluationsListCmd.Flags().String("protocol", "", "filter by protocol ID")
	evaluationsListCmd.Flags().Int("limit", 50, "max number of evaluations to display")

	evaluationsShowCmd.Flags().Bool("json", false, "print the full evaluation as JSON")

	evaluationsCmd.AddCommand(evaluationsListCmd)
	evaluationsCmd.AddCommand(evaluationsShowCmd)
	rootCmd.AddCommand(evaluationsCmd)
}

// formatEvaluationsList writes a tabular list of evaluation summaries to w.
func formatEvaluationsList(out io.Writer, evals []model.EvaluationSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSITE\tPROTOCOL\tSCORE\tSTATUS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t-----\t------\t-------")

	for _, e := range evals {
		status := "qualified"
		if e.Disqualified {
			status = "disqualified"
		}
		if e.WhatIf {
			status += " (what-if)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(e.ID),
			e.SiteID,
			e.ProtocolID,
			e.Overall,
			status,
			e.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
