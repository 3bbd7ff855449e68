package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/internal/cache"
	"github.com/birbparty/birb-pay/internal/cleanup"
	"github.com/birbparty/birb-pay/internal/config"
	"github.com/birbparty/birb-pay/internal/telemetry"
)

var _ cleanup.Purger = (*cache.PostgresCache)(nil)

// NewCacheCommand creates the cache command group for managing the shared
// response cache backends.
func NewCacheCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis or PostgreSQL response cache",
	}

	var every time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired rows from the PostgreSQL cache",
		Long: `Delete expired rows from the PostgreSQL cache.

With --every the purge repeats on that interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePurge(cmd, opts, every)
		},
	}
	purgeCmd.Flags().DurationVar(&every, "every", 0, "Keep purging on this interval until interrupted")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "delete KEY",
			Short: "Remove one cached response",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheDelete(cmd, opts, args[0])
			},
		},
		purgeCmd,
	)

	return cmd
}

// openStore connects the configured shared backend
func (o *GlobalOptions) openStore(cmd *cobra.Command) (cache.Store, *config.Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	switch cfg.Cache {
	case config.CacheRedis:
		store, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, cfg, nil
	case config.CachePostgres:
		store, err := cache.NewPostgresCache(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, cfg, nil
	default:
		return nil, nil, fmt.Errorf("cache %q has nothing to manage; use --cache redis or --cache postgres", cfg.Cache)
	}
}

func runCacheDelete(cmd *cobra.Command, opts *GlobalOptions, key string) error {
	store, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), key); err != nil {
		return err
	}
	fmt.Fprintf(opts.Out, "deleted %s\n", key)
	return nil
}

func runCachePurge(cmd *cobra.Command, opts *GlobalOptions, every time.Duration) error {
	if every < 0 {
		return fmt.Errorf("--every must not be negative")
	}

	store, cfg, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pg, ok := store.(*cache.PostgresCache)
	if !ok {
		fmt.Fprintf(opts.Out, "%s expires entries itself; nothing to purge\n", cfg.Cache)
		return nil
	}

	logger, fileLogger, err := telemetry.NewLogger(&cfg.Telemetry, opts.ErrOut)
	if err != nil {
		return err
	}
	if fileLogger != nil {
		defer fileLogger.Close()
	}

	svc := cleanup.NewService(pg, logger, cleanup.Config{Interval: every})
	if every == 0 {
		purged, err := svc.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.Out, "purged %d expired entries\n", purged)
		return nil
	}

	svc.Start(cmd.Context(), func(purged int64) {
		fmt.Fprintf(opts.Out, "purged %d expired entries\n", purged)
	})
	return nil
}
