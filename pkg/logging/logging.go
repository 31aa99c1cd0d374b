// Package logging configures the global zerolog logger from CLI flags.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type Settings struct {
	Level      string
	Format     string // text or json
	WithCaller bool
}

// AddFlags registers --log-level, --log-format and --with-caller as
// persistent flags on cmd.
func AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.Bool("with-caller", false, "Include caller (file:line) in logs")
}

// SettingsFromCobra reads the flags registered by AddFlags.
func SettingsFromCobra(cmd *cobra.Command) Settings {
	f := cmd.Flags()
	lvl, _ := f.GetString("log-level")
	format, _ := f.GetString("log-format")
	withCaller, _ := f.GetBool("with-caller")
	return Settings{Level: lvl, Format: format, WithCaller: withCaller}
}

// Init replaces the global logger. Logs go to stderr so stdout stays clean
// for command output.
func Init(s Settings) error {
	return InitTo(os.Stderr, s)
}

func InitTo(w io.Writer, s Settings) error {
	lvl := zerolog.WarnLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer
	switch strings.ToLower(s.Format) {
	case "", "text":
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		if f, ok := w.(*os.File); ok {
			cw.NoColor = !isatty.IsTerminal(f.Fd())
		}
		out = cw
	case "json":
		out = w
	default:
		return errors.Errorf("invalid log format %q", s.Format)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return nil
}

// InitFromCobra is meant for PersistentPreRunE.
func InitFromCobra(cmd *cobra.Command) error {
	return Init(SettingsFromCobra(cmd))
}
