package cmds

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/pulse/pkg/redisstream"
	"github.com/go-go-golems/pulse/pkg/store"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [slot...]",
		Short: "Follow stream events published to Redis by other pulse processes",
		Long: "Subscribes to the pulse.<slot> topics on Redis Streams. " +
			"Requires --redis-enabled here and in the publishing process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if e.bus == nil {
				return errors.New("watch needs --redis-enabled")
			}
			slots := args
			if len(slots) == 0 {
				slots = store.Slots()
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			for _, slot := range slots {
				topic := redisstream.TopicForSlot(slot)
				if err := redisstream.EnsureGroupAtTail(ctx, e.cfg.Redis.Addr, topic, e.cfg.Redis.Group); err != nil {
					return errors.Wrapf(err, "ensure group on %s", topic)
				}
				msgs, err := e.bus.Subscriber.Subscribe(ctx, topic)
				if err != nil {
					return errors.Wrapf(err, "subscribe %s", topic)
				}
				eg.Go(func() error {
					return printMessages(ctx, e, msgs)
				})
			}
			log.Info().Strs("slots", slots).Msg("watching")
			return eg.Wait()
		},
	}
	return cmd
}

func printMessages(ctx context.Context, e *env, msgs <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			got, err := redisstream.DecodeMessage(msg)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("undecodable bus message")
				continue
			}
			short := got.SessionID
			if len(short) > 8 {
				short = short[:8]
			}
			if got.Lifecycle != "" {
				e.printer.Printf("%s %s session %s\n", got.Slot, short, got.Lifecycle)
				continue
			}
			e.printer.Printf("%s %s #%d %s\n", got.Slot, short, got.Seq, e.printer.Event(got.Event))
		}
	}
}
