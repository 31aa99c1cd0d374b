package cmds

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/render"
	"github.com/go-go-golems/pulse/pkg/stream"
)

func newSearchCommand() *cobra.Command {
	var limit int
	var exportFormat, output string
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search papers, streaming the server's progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = e.cfg.SearchLimit
			}
			res, err := e.app.Papers.Search(cmd.Context(), strings.Join(args, " "), limit)
			st := e.app.Papers.SearchState()
			printListing(e.printer, st.Logs, st.Results, res)
			if err != nil {
				return err
			}
			if exportFormat == "" {
				return nil
			}
			for _, p := range st.Results {
				e.app.Papers.AddToCart(p)
			}
			data, err := e.app.Papers.ExportCart(cmd.Context(), exportFormat)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (default from config)")
	cmd.Flags().StringVar(&exportFormat, "export", "", "Export the results (markdown, bibtex, json, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export destination (default stdout)")
	return cmd
}

func newQuickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quick <query-or-arxiv-id...>",
		Short: "Quick fetch papers by keyword or arXiv ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			res, err := e.app.Papers.Quick(cmd.Context(), strings.Join(args, " "))
			st := e.app.Papers.QuickState()
			printListing(e.printer, st.Logs, st.Results, res)
			return err
		},
	}
}

func newRecentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Load the cached recent papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			res, err := e.app.Papers.LoadRecentCache(cmd.Context())
			st := e.app.Papers.RecentCacheState()
			printListing(e.printer, st.Logs, st.Papers, res)
			if err == nil && e.app.Papers.NeedSync() {
				e.printer.Println("cache is stale; run `pulse update` to sync")
			}
			return err
		},
	}
}

func newUpdateCommand() *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Sync recent papers from arXiv and refresh the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = e.cfg.RecentDays
			}
			if limit <= 0 {
				limit = e.cfg.RecentLimit
			}
			res, err := e.app.Papers.UpdateRecent(cmd.Context(), days, limit)
			st := e.app.Papers.RecentUpdateState()
			printListing(e.printer, st.Logs, st.Papers, res)
			if st.Done {
				e.printer.Printf("synced %d papers\n", st.Synced)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days back to sync (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum papers (default from config)")
	return cmd
}

func printListing(p *render.Printer, logs []projection.LogEntry, papers []events.Paper, res stream.Result) {
	for _, l := range logs {
		p.Println(p.LogLine(l))
	}
	for i, paper := range papers {
		p.Printf("%s", p.Paper(i+1, paper))
	}
	if res.Cancelled {
		p.Printf("cancelled after %d events\n", res.Events)
	}
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	cmd.PrintErrf("wrote %s\n", path)
	return nil
}

// outputName is the default export file name for a format.
func outputName(base, format string) string {
	return base + "." + api.FileExtension(format)
}
