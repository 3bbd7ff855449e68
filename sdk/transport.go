package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// TransportRequest is a fully prepared request handed to a Transport: the URL
// is absolute, headers are merged and the body is already compressed when
// compression applies.
type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a transport response with its body fully read.
type Response struct {
	// StatusCode is the HTTP status
	StatusCode int
	// Header holds the response headers
	Header http.Header
	// Body is the complete response body
	Body []byte
	// FromCache is true when the response was served from the cache
	FromCache bool
}

// Transport sends one request and returns its response. Implementations must
// honour ctx and must not retry; a returned error is reported to the caller
// as a KindTransportFailure *Error.
//
// Any HTTP library can be plugged in:
//
//	type recordingTransport struct{ next sdk.Transport }
//
//	func (t recordingTransport) Send(ctx context.Context, req *sdk.TransportRequest) (*sdk.Response, error) {
//	    log.Printf("%s %s", req.Method, req.URL)
//	    return t.next.Send(ctx, req)
//	}
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*Response, error)

// Send implements Transport
func (f TransportFunc) Send(ctx context.Context, req *TransportRequest) (*Response, error) {
	return f(ctx, req)
}

// RestyTransport is the default Transport, built on go-resty with retries
// disabled. Timeouts come from the request context set by the pipeline.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport over httpClient, or over a fresh
// http.Client when httpClient is nil. Passing a client is how callers control
// TLS and connection pooling.
func NewRestyTransport(httpClient *http.Client, logger Logger) *RestyTransport {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetRetryCount(0)
	if logger != nil {
		rc.SetLogger(restyLogger{l: logger})
	}
	return &RestyTransport{client: rc}
}

// Send implements Transport
func (t *RestyTransport) Send(ctx context.Context, req *TransportRequest) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaderMultiValues(req.Header)
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// BuildPath fills {0}, {1}, ... placeholders in pattern with path-escaped
// arguments, so identifiers containing slashes, spaces or reserved characters
// stay within one path segment.
//
// Example:
//
//	path := sdk.BuildPath("payments/{0}/refunds/{1}", "pay 1/a", "r;2")
//	// "payments/pay%201%2Fa/refunds/r%3B2"
func BuildPath(pattern string, args ...string) string {
	path := pattern
	for i, arg := range args {
		placeholder := fmt.Sprintf("{%d}", i)
		path = strings.Replace(path, placeholder, url.PathEscape(arg), 1)
	}
	return path
}
