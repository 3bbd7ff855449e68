// Package app implements the birbpay command line.
//
// Every command loads BIRBPAY_* environment settings first and then applies
// the flags given on the command line on top of them.
package app

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/internal/config"
)

const (
	// cliName is the name of the CLI application
	cliName = "birbpay"

	// cliDescription is the short description shown in help text
	cliDescription = "birbpay - talk to the merchant payment API through the SDK pipeline"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	BaseURL  string
	Token    string
	Debug    bool
	Wrap     bool
	Compress bool
	Cache    string
	Timeout  time.Duration
	LogLevel string

	// Metrics prints the Prometheus exposition after the command
	Metrics bool

	Out    io.Writer
	ErrOut io.Writer

	// HTTPClient replaces the default transport client when set
	HTTPClient *http.Client
}

// NewBirbpayCommand creates the root birbpay command with all subcommands
func NewBirbpayCommand() *cobra.Command {
	return newRootCommand(&GlobalOptions{Out: os.Stdout, ErrOut: os.Stderr})
}

func newRootCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `birbpay issues requests against the merchant payment API using the Go SDK.

Settings come from BIRBPAY_* environment variables (see "birbpay env") and
can be overridden with the global flags below. Responses can be cached in
memory, Redis or PostgreSQL.`,
		SilenceUsage: true,
	}
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.BaseURL, "base-url", "", "API base URL, must be https (env BIRBPAY_BASE_URL)")
	flags.StringVar(&opts.Token, "token", "", "bearer token (env BIRBPAY_TOKEN)")
	flags.BoolVar(&opts.Debug, "debug", false, "log failed requests")
	flags.BoolVar(&opts.Wrap, "wrap", false, "print the raw response instead of the decoded payload")
	flags.BoolVar(&opts.Compress, "compress", false, "gzip request bodies above the threshold")
	flags.StringVar(&opts.Cache, "cache", config.CacheNone, "response cache backend: none, memory, redis or postgres")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	flags.BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the command")

	cmd.AddCommand(
		NewConfigurationCommand(opts),
		NewGetCommand(opts),
		NewPostCommand(opts),
		NewVersionCheckCommand(opts),
		NewCacheCommand(opts),
		NewEnvCommand(opts),
	)

	return cmd
}

// loadConfig reads the environment and applies explicitly set flags
func (o *GlobalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("token") {
		cfg.Token = o.Token
	}
	if flags.Changed("debug") {
		cfg.Debug = o.Debug
	}
	if flags.Changed("wrap") {
		cfg.WrapResponse = o.Wrap
	}
	if flags.Changed("compress") {
		cfg.Compression = o.Compress
	}
	if flags.Changed("cache") {
		cfg.Cache = o.Cache
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}
	if flags.Changed("log-level") {
		cfg.Telemetry.LogLevel = o.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
