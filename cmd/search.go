package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/alfred"
	"github.com/JakeFAU/kanka-search/internal/diagnostics"
	"github.com/JakeFAU/kanka-search/internal/search"
)

const (
	searchCmdName = "search"

	formatAuto = "auto"
	formatJSON = "json"
	formatText = "text"
)

// newSearchCmd creates the 'search' subcommand used by the Alfred workflow.
// In JSON mode stdout always carries a valid Script Filter document: on
// failure it is a single item that opens the diagnostics log.
func newSearchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   searchCmdName + " <query...>",
		Short: "Rank cached Kanka names against a query and print Alfred JSON",
		Long: `Joins the arguments into one query, refreshes the cache when it is
missing or stale, and prints the best matches as Alfred Script Filter JSON.
When stdout is a terminal the matches are printed as a table instead, unless
--format json is given.`,
		RunE: runSearchCommand,
	}
	cmd.Flags().StringVar(&format, "format", formatAuto, "output format: auto, json or text")
	return cmd
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	text, err := textOutput(cmd)
	if err != nil {
		return err
	}

	matches, err := appInstance.Service().Search(cmd.Context(), query)
	if err != nil {
		appInstance.Logger().Error("search failed", zap.String("query", query), zap.Error(err))
		logPath := appInstance.RecordFailure(query, err)
		if text {
			return fmt.Errorf("search %q failed, details in %s: %w", query, logPath, err)
		}
		return writeItems(cmd, alfred.ErrorItem(logPath))
	}
	if text {
		return writeTable(cmd.OutOrStdout(), matches)
	}
	return writeItems(cmd, alfred.FromMatches(matches))
}

// emitStartupFailure covers failures before the app exists, such as an
// unreadable config file.
func emitStartupFailure(cmd *cobra.Command, args []string, failure error) {
	logPath := diagnostics.DefaultPath
	if recorder, err := diagnostics.New(logPath); err == nil {
		recorder.Record(strings.Join(args, " "), failure)
		_ = recorder.Close()
	}
	if text, err := textOutput(cmd); err == nil && !text {
		_ = writeItems(cmd, alfred.ErrorItem(logPath))
	}
}

// textOutput resolves --format. auto means text on a terminal and JSON
// everywhere else, which covers Alfred's pipe.
func textOutput(cmd *cobra.Command) (bool, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return false, err
	}
	switch format {
	case formatJSON:
		return false, nil
	case formatText:
		return true, nil
	case formatAuto, "":
		return isTerminal(cmd.OutOrStdout()), nil
	default:
		return false, fmt.Errorf("unknown --format %q: want auto, json or text", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeItems(cmd *cobra.Command, items alfred.Items) error {
	if err := alfred.Write(cmd.OutOrStdout(), items); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, matches []search.Match) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tNAME\tLINK")
	for _, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Score, m.DisplayName, m.Link)
	}
	return tw.Flush()
}
