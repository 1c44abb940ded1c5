package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate the configured cache backend",
		Long: `Operate on the cache backend named in the configuration.

Keys are given without the configured prefix. Entries written by render and serve look like
  post/42-20240101120000000000000/json/9f3a1c

Only the redis backend outlives a process; memory and sturdyc start empty every run.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every entry under the configured prefix",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withBackend(func(backend cache.Cache) error {
					if err := backend.Clear(cmd.Context()); err != nil {
						return fmt.Errorf("failed to clear cache: %w", err)
					}
					a.logger.Info("cache cleared", zap.String("backend", a.config.Cache.Backend))
					cmd.Printf("%s cache cleared\n", color.GreenString("✓"))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <key>...",
			Short: "Remove entries by key",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withBackend(func(backend cache.Cache) error {
					for _, key := range args {
						if err := backend.Delete(cmd.Context(), key); err != nil {
							return fmt.Errorf("failed to delete %s: %w", key, err)
						}
						cmd.Printf("%s deleted %s\n", color.GreenString("✓"), key)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "exists <key>...",
			Short: "Report whether entries are cached",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withBackend(func(backend cache.Cache) error {
					for _, key := range args {
						ok, err := backend.Exists(cmd.Context(), key)
						if err != nil {
							return fmt.Errorf("failed to check %s: %w", key, err)
						}
						state := color.YellowString("missing")
						if ok {
							state = color.GreenString("cached")
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, state)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withBackend(fn func(cache.Cache) error) error {
	backend, closer, err := newBackend(a.config.Cache)
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(backend)
}
