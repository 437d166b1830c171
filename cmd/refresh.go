package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newRefreshCmd creates the 'refresh' subcommand.
func newRefreshCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the cache from the Kanka API when it is stale",
		Long: `Crawls every campaign and category and replaces the cache when it is
missing or older than cache.ttl_hours. --force rebuilds regardless of age and
also replaces a corrupt cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefreshCommand(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even when the cache is fresh")
	return cmd
}

func runRefreshCommand(cmd *cobra.Command, force bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	report, err := appInstance.Service().Refresh(cmd.Context(), force)
	if err != nil {
		return fmt.Errorf("refresh cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if !report.Refreshed {
		_, err = fmt.Fprintf(out, "cache is fresh: %d entries built at %s\n",
			report.Cache.Len(), report.Cache.BuiltAt.Format("2006-01-02 15:04:05 MST"))
		return err
	}
	if _, err := fmt.Fprintf(out, "cache rebuilt: %d entries from %d campaigns in %s (%d collisions, %d failed categories)\n",
		report.Cache.Len(), report.Campaigns, report.Duration.Round(time.Millisecond), report.Stats.Collisions, len(report.Failures)); err != nil {
		return err
	}
	for _, f := range report.Failures {
		if _, err := fmt.Fprintf(out, "  skipped %s/%s: %v\n", f.Campaign, f.Category, f.Err); err != nil {
			return err
		}
	}
	return nil
}
