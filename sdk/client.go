package sdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// ConfigurationPath is the endpoint the server publishes its configuration,
// including its interface version, under.
const ConfigurationPath = "configuration"

// Client is the entry point of the SDK. It owns a Pipeline and adds the
// server configuration fetch with its one-time version check.
//
// All methods are safe for concurrent use.
//
// Example:
//
//	cfg, err := sdk.NewConfig("https://api.payments.example.com/v2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.SetAuthToken(os.Getenv("MERCHANT_TOKEN"))
//
//	client, err := sdk.NewClient(cfg, sdk.WithCacheStore(sdk.NewMemoryCache()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Fetch the server configuration once; an incompatible server version
//	// is logged as a warning.
//	serverCfg, err := client.FetchServerConfiguration(ctx, sdk.WithCache(time.Hour, ""))
//
//	// Issue calls
//	var payment Payment
//	_, err = client.Execute(ctx, &sdk.Request{
//	    Path: sdk.BuildPath("payments/{0}", paymentID),
//	    Into: &payment,
//	})
//	if sdk.KindOf(err) == sdk.KindStatusMismatch {
//	    // inspect the error body
//	}
type Client struct {
	pipeline *Pipeline
}

// NewClient creates a client over cfg. See the Option functions for the
// collaborators that can be replaced.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	p, err := NewPipeline(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{pipeline: p}, nil
}

// Config returns the client's configuration. Changes made through its setters
// apply to calls started afterwards.
func (c *Client) Config() *Config {
	return c.pipeline.Config()
}

// Execute runs req and waits for its result. In decode mode the result is the
// decoded payload (req.Into when given); in wrap mode it is the RawHandler's
// result or the *Response.
func (c *Client) Execute(ctx context.Context, req *Request) (interface{}, error) {
	return c.pipeline.Execute(ctx, req)
}

// ExecuteAsync runs req in the background.
//
// Example:
//
//	fut := client.ExecuteAsync(ctx, req)
//	fut.Then(func(payload interface{}, err error) {
//	    // called once the call completes
//	})
func (c *Client) ExecuteAsync(ctx context.Context, req *Request) *Future[interface{}] {
	return c.pipeline.ExecuteAsync(ctx, req)
}

// ServerConfiguration is the payload of the configuration endpoint.
type ServerConfiguration struct {
	// Version is the server's "current:revision:age" interface version
	Version string `json:"version"`
	// Environment names the backend environment, e.g. "sandbox"
	Environment string `json:"environment,omitempty"`
	// Features lists server-side feature switches
	Features map[string]interface{} `json:"features,omitempty"`
	// Raw is the complete payload as received
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full payload in Raw.
func (s *ServerConfiguration) UnmarshalJSON(data []byte) error {
	type plain ServerConfiguration
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ServerConfiguration(p)
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// FetchServerConfiguration retrieves the server configuration and checks the
// server's interface version against ClientInterface. The result is decoded
// whatever the wrap-response setting. An incompatible server only produces a
// warning in the log; the configuration is still returned.
//
// policy is optional and caches the configuration for the duration it names.
func (c *Client) FetchServerConfiguration(ctx context.Context, policy *CachePolicy) (*ServerConfiguration, error) {
	serverCfg := &ServerConfiguration{}
	payload, err := c.pipeline.Execute(ctx, &Request{
		Method:         http.MethodGet,
		Path:           ConfigurationPath,
		ExpectedStatus: http.StatusOK,
		Cache:          policy,
		Into:           serverCfg,
		RawHandler: func(resp *Response) (interface{}, error) {
			if err := json.Unmarshal(resp.Body, serverCfg); err != nil {
				return nil, newErrorf(KindDecodeFailure, err, "failed to decode server configuration: %v", err).withResponse(resp)
			}
			return serverCfg, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, newError(KindDecodeFailure, "server configuration response has no body", nil)
	}

	CheckServerVersion(c.pipeline.logger, serverCfg.Version)
	return serverCfg, nil
}
