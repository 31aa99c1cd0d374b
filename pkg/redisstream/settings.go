package redisstream

import (
	"github.com/spf13/cobra"
)

// Settings holds Redis Streams transport configuration for Watermill.
type Settings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:     "localhost:6379",
		Group:    "pulse-watch",
		Consumer: "watch-1",
	}
}

// AddFlags registers the redis flags on cmd, defaulting to s.
func AddFlags(cmd *cobra.Command, s *Settings) {
	f := cmd.PersistentFlags()
	f.BoolVar(&s.Enabled, "redis-enabled", s.Enabled, "Publish stream events to Redis Streams")
	f.StringVar(&s.Addr, "redis-addr", s.Addr, "Redis address host:port")
	f.StringVar(&s.Group, "redis-group", s.Group, "Redis consumer group")
	f.StringVar(&s.Consumer, "redis-consumer", s.Consumer, "Redis consumer name")
}
