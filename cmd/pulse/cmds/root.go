package cmds

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/config"
	"github.com/go-go-golems/pulse/pkg/logging"
	"github.com/go-go-golems/pulse/pkg/persistence/eventlog"
	"github.com/go-go-golems/pulse/pkg/redisstream"
	"github.com/go-go-golems/pulse/pkg/render"
	"github.com/go-go-golems/pulse/pkg/store"
	"github.com/go-go-golems/pulse/pkg/stream"
)

type rootFlags struct {
	configPath string
	baseURL    string
	language   string
	eventLog   string
	live       bool
	redis      redisstream.Settings
}

// env is what every subcommand runs against. It is built once in the root's
// PersistentPreRunE and torn down in PersistentPostRunE.
type env struct {
	cfg     config.Config
	client  *api.Client
	app     *store.App
	bus     *redisstream.Bus
	events  *eventlog.SQLiteStore
	printer *render.Printer
}

func (e *env) Close() {
	if e == nil {
		return
	}
	if e.app != nil {
		e.app.Close()
	}
	if e.bus != nil {
		if err := e.bus.Close(); err != nil {
			log.Warn().Err(err).Msg("close bus")
		}
	}
	if e.events != nil {
		if err := e.events.Close(); err != nil {
			log.Warn().Err(err).Msg("close event log")
		}
	}
}

type envKey struct{}

func envFrom(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("command environment not initialized")
	}
	return e, nil
}

func NewRootCommand() *cobra.Command {
	flags := &rootFlags{redis: redisstream.DefaultSettings()}

	rootCmd := &cobra.Command{
		Use:          "pulse",
		Short:        "Terminal client for the arXiv Pulse paper server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.InitFromCobra(cmd); err != nil {
				return err
			}
			e, err := buildEnv(cmd, flags)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), envKey{}, e)
			cmd.SetContext(store.WithApp(ctx, e.app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e, err := envFrom(cmd); err == nil {
				e.Close()
			}
			return nil
		},
	}

	logging.AddFlags(rootCmd)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/pulse/config.yaml)")
	pf.StringVar(&flags.baseURL, "base-url", "", "Server base URL")
	pf.StringVar(&flags.language, "language", "", "Reply language for chat")
	pf.StringVar(&flags.eventLog, "event-log", "", "Record stream sessions into this SQLite file")
	pf.BoolVar(&flags.live, "live", false, "Print stream events to stderr as they arrive")
	redisstream.AddFlags(rootCmd, &flags.redis)

	rootCmd.AddCommand(
		newSearchCommand(),
		newQuickCommand(),
		newRecentCommand(),
		newUpdateCommand(),
		newSyncCommand(),
		newChatCommand(),
		newCollectionsCommand(),
		newExportCommand(),
		newHistoryCommand(),
		newWatchCommand(),
		newStatusCommand(),
	)
	return rootCmd
}

func buildEnv(cmd *cobra.Command, flags *rootFlags) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		client:  api.NewClient(cfg.BaseURL),
		printer: render.NewPrinter(cmd.OutOrStdout()),
	}

	var taps []stream.Tap
	if flags.live {
		live := render.NewPrinter(cmd.ErrOrStderr())
		taps = append(taps, stream.EventTapFunc(func(_ context.Context, obs stream.Observation) error {
			live.Printf("%s %s\n", obs.Session.Slot, live.Event(obs.Event))
			return nil
		}))
	}
	if cfg.EventLog != "" {
		e.events, err = eventlog.Open(cfg.EventLog)
		if err != nil {
			return nil, errors.Wrap(err, "open event log")
		}
		taps = append(taps, e.events)
	}
	if cfg.Redis.Enabled {
		log.Info().Str("addr", cfg.Redis.Addr).Str("group", cfg.Redis.Group).Str("consumer", cfg.Redis.Consumer).Msg("Initializing Redis bus")
		e.bus, err = redisstream.BuildBus(cfg.Redis, logging.NewWatermill(log.Logger))
		if err != nil {
			e.Close()
			return nil, errors.Wrap(err, "create redis bus")
		}
		taps = append(taps, redisstream.NewPublisherTap(e.bus.Publisher))
	}

	e.app = store.NewApp(e.client,
		store.WithStreamHTTPClient(&http.Client{}),
		store.WithTaps(taps...),
	)
	return e, nil
}

// applyFlagOverrides lets explicitly set flags win over file and env.
func applyFlagOverrides(cmd *cobra.Command, flags *rootFlags, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if f.Changed("language") {
		cfg.Language = flags.language
	}
	if f.Changed("event-log") {
		cfg.EventLog = flags.eventLog
	}
	if f.Changed("redis-enabled") {
		cfg.Redis.Enabled = flags.redis.Enabled
	}
	if f.Changed("redis-addr") {
		cfg.Redis.Addr = flags.redis.Addr
	}
	if f.Changed("redis-group") {
		cfg.Redis.Group = flags.redis.Group
	}
	if f.Changed("redis-consumer") {
		cfg.Redis.Consumer = flags.redis.Consumer
	}
}
