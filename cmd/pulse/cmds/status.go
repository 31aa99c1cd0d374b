package cmds

import (
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/pulse/pkg/api"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server configuration status, stats, tasks and caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			calls := map[string]func() (api.Object, error){
				"config": func() (api.Object, error) { return e.client.Config.Status(cmd.Context()) },
				"stats":  func() (api.Object, error) { return e.app.Papers.FetchStats(cmd.Context()) },
				"tasks":  func() (api.Object, error) { return e.client.Tasks.Status(cmd.Context()) },
				"cache":  func() (api.Object, error) { return e.client.Cache.Stats(cmd.Context()) },
			}

			var mu sync.Mutex
			out := map[string]any{"server": e.cfg.BaseURL}
			var eg errgroup.Group
			for name, call := range calls {
				eg.Go(func() error {
					res, err := call()
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						out[name] = map[string]string{"error": err.Error()}
						return nil
					}
					out[name] = res
					return nil
				})
			}
			_ = eg.Wait()
			return printYAML(cmd, out)
		},
	}
}

func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
