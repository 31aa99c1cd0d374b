package cmds

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/render"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about papers",
	}
	cmd.AddCommand(
		newChatSessionsCommand(),
		newChatNewCommand(),
		newChatSendCommand(),
		newChatShowCommand(),
		newChatDeleteCommand(),
	)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newChatSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			sessions, err := e.app.Chat.FetchSessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sessions {
				e.printer.Printf("%5d  %-40s %s\n", s.ID, s.Title, s.UpdatedAt)
			}
			return nil
		},
	}
}

func newChatNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			s, err := e.app.Chat.NewSession(cmd.Context())
			if err != nil {
				return err
			}
			e.printer.Printf("%d\n", s.ID)
			return nil
		},
	}
}

func newChatShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a chat transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.Chat.SelectSession(cmd.Context(), id); err != nil {
				return err
			}
			for _, m := range e.app.Chat.Messages() {
				if err := printMessage(e.printer, m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newChatDeleteCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a chat session, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if all {
				if _, err := e.app.Chat.FetchSessions(ctx); err != nil {
					return err
				}
				return e.app.Chat.ClearAll(ctx)
			}
			if len(args) != 1 {
				return errors.New("session id required (or --all)")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.app.Chat.DeleteSession(ctx, id)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every session")
	return cmd
}

func newChatSendCommand() *cobra.Command {
	var sessionID int64
	var papers []string
	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if sessionID != 0 {
				if err := e.app.Chat.SelectSession(ctx, sessionID); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			out := &replyEcho{p: e.printer, from: len(e.app.Chat.Messages())}

			eg, ctx := errgroup.WithContext(ctx)
			sent := make(chan struct{})
			eg.Go(func() error {
				defer close(sent)
				res, err := e.app.Chat.Send(ctx, strings.Join(args, " "), papers, e.cfg.Language)
				if err != nil {
					return err
				}
				if res.Cancelled {
					e.printer.Println("\n(cancelled)")
				}
				return nil
			})
			eg.Go(func() error {
				return out.follow(ctx, e, sent)
			})
			if err := eg.Wait(); err != nil {
				return err
			}

			e.printer.Println()
			msgs := e.app.Chat.Messages()
			if len(msgs) > 0 && e.printer.Color() {
				return printMessage(e.printer, msgs[len(msgs)-1])
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&sessionID, "session", 0, "Session to continue (default: a new one)")
	cmd.Flags().StringSliceVar(&papers, "paper", nil, "arXiv IDs to discuss (repeatable)")
	return cmd
}

// replyEcho prints the streaming reply as it grows, polling the transcript.
// from is the transcript length before the send.
type replyEcho struct {
	p     *render.Printer
	from  int
	mu    sync.Mutex
	text  string
	stage string
}

func (r *replyEcho) follow(ctx context.Context, e *env, sent <-chan struct{}) error {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-sent:
			r.flush(e)
			return nil
		case <-ctx.Done():
			return nil
		case <-tick.C:
			r.flush(e)
		}
	}
}

func (r *replyEcho) flush(e *env) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pr := e.app.Chat.Progress(); pr != nil && pr.Stage+pr.Message != r.stage {
		r.stage = pr.Stage + pr.Message
		r.p.Println(r.p.Progress(pr))
	}
	msgs := e.app.Chat.Messages()
	if len(msgs) <= r.from+1 {
		return
	}
	reply := msgs[r.from+1].Content
	switch {
	case r.p.Color():
		// Styled output renders the whole reply once it is complete.
	case strings.HasPrefix(reply, r.text):
		r.p.Printf("%s", reply[len(r.text):])
	default:
		r.p.Printf("\n%s", reply)
	}
	r.text = reply
}

func printMessage(p *render.Printer, m projection.Message) error {
	p.Printf("## %s\n", m.Role)
	if len(m.PaperIDs) > 0 {
		p.Printf("papers: %s\n", strings.Join(m.PaperIDs, ", "))
	}
	out, err := p.Markdown(m.Content, m.Streaming)
	if err != nil {
		return err
	}
	p.Println(out)
	return nil
}
