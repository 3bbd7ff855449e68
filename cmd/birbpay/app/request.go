package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/sdk"
)

// GetOptions holds options for the get command
type GetOptions struct {
	*GlobalOptions

	Path     string
	Expect   int
	CacheTTL time.Duration
	CacheKey string
	Headers  []string
	Repeat   int
}

// NewGetCommand creates the get command.
//
// Usage:
//
//	birbpay get PATH [--expect N] [--cache-ttl D] [--cache-key K] [--header K=V]...
func NewGetCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &GetOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Issue a GET request through the pipeline",
		Example: `  # Fetch a payment
  birbpay get payments/pay_123

  # Expect a 202 and send an extra header
  birbpay get payments/pay_123/status --expect 202 --header X-Shop=s_1

  # Repeat a cached call and show the cache counters
  birbpay get payments/pay_123 --cache memory --cache-ttl 1m --repeat 3 --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return runGet(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Expect, "expect", 0, "expected status code (default 200)")
	cmd.Flags().DurationVar(&opts.CacheTTL, "cache-ttl", 0, "cache the response for this long")
	cmd.Flags().StringVar(&opts.CacheKey, "cache-key", "", "explicit cache key (derived from the request when empty)")
	cmd.Flags().StringArrayVar(&opts.Headers, "header", nil, "extra request header as K=V, repeatable")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "issue the request this many times")

	return cmd
}

func runGet(cmd *cobra.Command, opts *GetOptions) error {
	header, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}
	if opts.Repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", opts.Repeat)
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}

	var payload interface{}
	for i := 0; i < opts.Repeat && err == nil; i++ {
		payload, err = s.client.Execute(s.ctx, &sdk.Request{
			Method:         http.MethodGet,
			Path:           opts.Path,
			Header:         header.Clone(),
			ExpectedStatus: opts.Expect,
			Cache:          cachePolicy(opts.CacheTTL, opts.CacheKey),
		})
	}
	if err == nil {
		err = printPayload(opts.Out, payload)
	} else {
		printErrorBody(opts.ErrOut, err)
	}
	return s.finish(err)
}

// PostOptions holds options for the post command
type PostOptions struct {
	*GlobalOptions

	Path    string
	Data    string
	Expect  int
	Headers []string
}

// NewPostCommand creates the post command.
//
// Usage:
//
//	birbpay post PATH --data JSON [--expect N]
func NewPostCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &PostOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "post PATH",
		Short: "Issue a POST request through the pipeline",
		Example: `  # Create a payment
  birbpay post payments --data '{"amount":1250,"currency":"EUR"}' --expect 201

  # Read the body from stdin
  echo '{"amount":1250}' | birbpay post payments --data -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return runPost(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON request body, - reads stdin")
	cmd.Flags().IntVar(&opts.Expect, "expect", 0, "expected status code (default 200)")
	cmd.Flags().StringArrayVar(&opts.Headers, "header", nil, "extra request header as K=V, repeatable")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runPost(cmd *cobra.Command, opts *PostOptions) error {
	header, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	body := []byte(opts.Data)
	if opts.Data == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read body from stdin: %w", err)
		}
	}
	if !json.Valid(body) {
		return errors.New("--data is not valid JSON")
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}

	payload, err := s.client.Execute(s.ctx, &sdk.Request{
		Method:         http.MethodPost,
		Path:           opts.Path,
		Header:         header,
		Body:           body,
		ExpectedStatus: opts.Expect,
	})
	if err == nil {
		err = printPayload(opts.Out, payload)
	} else {
		printErrorBody(opts.ErrOut, err)
	}
	return s.finish(err)
}

// printErrorBody shows the JSON error document the server sent, if any
func printErrorBody(w io.Writer, err error) {
	if body, ok := sdk.ErrorBody[map[string]interface{}](err); ok && body != nil {
		_ = printPayload(w, body)
	}
}

// parseHeaders turns K=V flags into a header
func parseHeaders(values []string) (http.Header, error) {
	header := make(http.Header, len(values))
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q, want K=V", kv)
		}
		header.Add(strings.TrimSpace(k), v)
	}
	return header, nil
}
