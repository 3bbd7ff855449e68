package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/birbparty/birb-pay/internal/cache"
	"github.com/birbparty/birb-pay/internal/config"
	"github.com/birbparty/birb-pay/internal/telemetry"
	"github.com/birbparty/birb-pay/sdk"
)

const tracerName = "github.com/birbparty/birb-pay/cmd/birbpay"

// session is everything one command needs to talk to the API
type session struct {
	opts   *GlobalOptions
	tel    *telemetry.Telemetry
	client *sdk.Client
	closer func() error

	ctx  context.Context
	span trace.Span
}

// openSession builds telemetry, the cache backend and the SDK client, and
// starts the command span every request span hangs off.
func (o *GlobalOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	tel, err := telemetry.Init(ctx, &cfg.Telemetry, o.ErrOut)
	if err != nil {
		return nil, err
	}

	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	store, closer, err := openCache(ctx, cfg)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	clientOpts := []sdk.Option{
		sdk.WithLogger(tel.Logger),
		sdk.WithObserver(tel.Observer),
		sdk.WithTracer(tel.Tracer(tracerName)),
	}
	if o.HTTPClient != nil {
		clientOpts = append(clientOpts, sdk.WithHTTPClient(o.HTTPClient))
	}
	if store != nil {
		clientOpts = append(clientOpts, sdk.WithCacheStore(store))
	}

	client, err := sdk.NewClient(sdkCfg, clientOpts...)
	if err != nil {
		_ = closer()
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	ctx, span := tel.Tracer(tracerName).Start(ctx, cliName+" "+cmd.Name())

	return &session{
		opts:   o,
		tel:    tel,
		client: client,
		closer: closer,
		ctx:    ctx,
		span:   span,
	}, nil
}

// finish ends the command span, prints metrics when asked and releases
// everything. It returns err unchanged.
func (s *session) finish(err error) error {
	if err != nil {
		msg := sdk.Sanitize(err.Error())
		s.span.SetStatus(codes.Error, msg)
		telemetry.WithContext(s.ctx, s.tel.Logger).
			WithField("kind", sdk.KindOf(err).String()).
			Debug("command failed: " + msg)
	}
	s.span.End()

	if s.opts.Metrics {
		if werr := telemetry.WriteMetrics(s.opts.Out, s.tel.Registry); werr != nil {
			s.tel.Logger.WithError(werr).Warn("failed to write metrics")
		}
	}

	if cerr := s.closer(); cerr != nil {
		s.tel.Logger.WithError(cerr).Warn("failed to close cache backend")
	}
	if serr := s.tel.Shutdown(context.Background()); serr != nil && err == nil {
		err = serr
	}
	return err
}

// openCache connects the configured backend. The returned closer is never nil.
func openCache(ctx context.Context, cfg *config.Config) (sdk.Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache {
	case config.CacheMemory:
		return sdk.NewMemoryCache(), noop, nil
	case config.CacheRedis:
		store, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.CachePostgres:
		store, err := cache.NewPostgresCache(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, nil
	}
}

// printPayload writes a pipeline result: raw responses as their body,
// decoded payloads re-encoded as indented JSON. A nil payload prints nothing.
func printPayload(w io.Writer, payload interface{}) error {
	switch v := payload.(type) {
	case nil:
		return nil
	case *sdk.Response:
		return printBody(w, v.Body)
	case json.RawMessage:
		return printBody(w, v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

func printBody(w io.Writer, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(body))
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}
