package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/internal/capability"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/registry"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage site capability profiles",
}

// -- site import --

var siteImportCmd = &cobra.Command{
	Use:   "import <profile.yaml>...",
	Short: "Import or replace site profiles from YAML/JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, path := range args {
			p, err := registry.LoadProfile(path)
			if err != nil {
				return err
			}
			if err := st.UpsertSite(ctx, *p); err != nil {
				return eris.Wrap(err, "site import")
			}
			zap.L().Info("site: imported profile",
				zap.String("site", p.ID),
				zap.String("path", path),
				zap.Int("facts", capability.Build(*p, nil).Len()),
			)
		}
		return nil
	},
}

// -- site show --

var siteShowCmd = &cobra.Command{
	Use:   "show <site-id>",
	Short: "Show a site profile, or its flattened capability facts with --facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		site, err := st.GetSite(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "site show")
		}

		if facts, _ := cmd.Flags().GetBool("facts"); facts {
			formatFacts(os.Stdout, capability.Build(*site, nil).Facts())
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(site)
	},
}

// -- site list --

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sites",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sites, err := st.ListSites(ctx)
		if err != nil {
			return eris.Wrap(err, "site list")
		}
		if len(sites) == 0 {
			fmt.Fprintln(os.Stderr, "No sites found.")
			return nil
		}

		formatSitesList(os.Stdout, sites)
		return nil
	},
}

func init() {
	siteShowCmd.Flags().Bool("facts", false, "print the flattened capability facts instead of the raw profile")

	siteCmd.AddCommand(siteImportCmd)
	siteCmd.AddCommand(siteShowCmd)
	siteCmd.AddCommand(siteListCmd)
	rootCmd.AddCommand(siteCmd)
}

// formatSitesList writes a tabular list of sites to w.
func formatSitesList(out io.Writer, sites []model.SiteProfile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tFACTS\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------")

	for _, s := range sites {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.ID,
			s.Name,
			capability.Build(s, nil).Len(),
			s.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatFacts writes capability facts as KEY VALUE UNIT SOURCE rows.
func formatFacts(out io.Writer, facts []model.CapabilityFact) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tVALUE\tUNIT\tSOURCE")
	for _, f := range facts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Key, f.Value.String(), f.Unit, f.Source)
	}
	_ = w.Flush()
}
