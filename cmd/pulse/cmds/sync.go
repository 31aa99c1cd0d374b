package cmds

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/projection"
)

func newSyncCommand() *cobra.Command {
	var yearsBack int
	var force, initial bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a server-side paper sync and print its log",
		Long: "Syncs papers from arXiv for the configured search queries. " +
			"--init runs the first sync after setup instead, over the selected fields.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			var st projection.SyncLogState
			if initial {
				if cmd.Flags().Changed("years-back") || force {
					return errors.New("--init takes its settings from the server config")
				}
				_, err = e.app.Tasks.InitialSync(cmd.Context())
				st = e.app.Tasks.InitialSyncState()
			} else {
				if yearsBack < 1 || yearsBack > 20 {
					return errors.Errorf("--years-back must be between 1 and 20, got %d", yearsBack)
				}
				_, err = e.app.Tasks.Sync(cmd.Context(), yearsBack, force)
				st = e.app.Tasks.SyncState()
			}
			for _, l := range st.Logs {
				e.printer.Println(e.printer.LogLine(l))
			}
			if st.Done && st.Added > 0 {
				e.printer.Printf("added %d papers\n", st.Added)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&yearsBack, "years-back", 5, "Years of papers to look back (1-20)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-fetch papers already in the database")
	cmd.Flags().BoolVar(&initial, "init", false, "Run the initial sync after setup")
	return cmd
}
