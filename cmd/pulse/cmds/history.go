package cmds

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/events"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show recorded stream sessions, or the events of one",
		Long:  "Reads the SQLite event log written when --event-log (or event_log in the config) is set.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if e.events == nil {
				return errors.New("no event log configured (use --event-log)")
			}
			ctx := cmd.Context()
			if len(args) == 1 {
				recs, err := e.events.Events(ctx, args[0])
				if err != nil {
					return err
				}
				for _, r := range recs {
					line := r.Kind
					if ev, err := events.NewEventFromJSON(r.Payload); err == nil {
						line = e.printer.Event(ev)
					}
					e.printer.Printf("%4d  %s\n", r.Seq, line)
				}
				return nil
			}
			sessions, err := e.events.ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				status := "open"
				switch {
				case s.Error != "":
					status = "failed: " + s.Error
				case s.Cancelled:
					status = "cancelled"
				case s.Done:
					status = "done"
				case s.EndedAtMs != 0:
					status = "ended"
				}
				started := time.UnixMilli(s.StartedAtMs).Format(time.DateTime)
				e.printer.Printf("%s  %s  %-14s %4d events  %s\n", s.ID, started, s.Slot, s.Events, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Sessions to list (0 for all)")
	return cmd
}
