package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/sdk"
)

// ConfigurationOptions holds options for the configuration command
type ConfigurationOptions struct {
	*GlobalOptions

	CacheTTL time.Duration
	CacheKey string
}

// NewConfigurationCommand creates the configuration command.
//
// It fetches the server configuration, compares the advertised API version
// with the client interface and prints the configuration document.
func NewConfigurationCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ConfigurationOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "configuration",
		Short: "Fetch the server configuration and check version compatibility",
		Example: `  # Fetch and print the configuration
  birbpay configuration

  # Cache the document in Redis for an hour
  birbpay configuration --cache redis --cache-ttl 1h --cache-key server-config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfiguration(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.CacheTTL, "cache-ttl", 0, "cache the response for this long")
	cmd.Flags().StringVar(&opts.CacheKey, "cache-key", "", "explicit cache key (derived from the request when empty)")

	return cmd
}

func runConfiguration(cmd *cobra.Command, opts *ConfigurationOptions) error {
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}

	serverCfg, err := s.client.FetchServerConfiguration(s.ctx, cachePolicy(opts.CacheTTL, opts.CacheKey))
	if err == nil {
		if v, ok := sdk.ParseVersion(serverCfg.Version); ok && !v.Supports(sdk.ClientInterface) {
			fmt.Fprintf(opts.ErrOut, "warning: server version %s does not support client interface %d\n", v, sdk.ClientInterface)
		}
		err = printBody(opts.Out, serverCfg.Raw)
	}
	return s.finish(err)
}

// cachePolicy stages a policy when either value is set
func cachePolicy(ttl time.Duration, key string) *sdk.CachePolicy {
	if ttl <= 0 && key == "" {
		return nil
	}
	return sdk.WithCache(ttl, key)
}
