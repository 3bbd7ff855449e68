package sdktest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// APIPrefix is the path prefix the mock payments API is served under
const APIPrefix = "/v2"

// MockServer is a TLS test server that mimics the payments API
type MockServer struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	requestCount atomic.Int32
	requests     []RecordedRequest
}

// HandlerFunc is a custom handler function type. A nil response writes no body.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (int, interface{})

// RecordedRequest stores information about a received request. Body is the
// body as sent, still compressed when Content-Encoding is gzip.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// NewMockServer creates a new TLS mock server with the default handlers
func NewMockServer() *MockServer {
	ms := &MockServer{
		handlers: make(map[string]HandlerFunc),
		requests: make([]RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleRequest)

	ms.Server = httptest.NewTLSServer(mux)
	ms.setupDefaultHandlers()

	return ms
}

// BaseURL returns the https base URL clients should be configured with
func (ms *MockServer) BaseURL() string {
	return ms.URL + APIPrefix
}

func (ms *MockServer) setupDefaultHandlers() {
	ms.RegisterHandler("GET "+APIPrefix+"/configuration", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusOK, ServerConfiguration(CompatibleServerVersion)
	})

	ms.RegisterHandler("GET "+APIPrefix+"/payments/", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		id := r.URL.Path[len(APIPrefix+"/payments/"):]
		p := SamplePayment
		p.ID = id
		return http.StatusOK, p
	})

	ms.RegisterHandler("POST "+APIPrefix+"/payments", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		var in map[string]interface{}
		if err := json.Unmarshal(DecodedBody(r), &in); err != nil {
			return http.StatusBadRequest, ErrorPayload("invalid_body", err.Error())
		}
		p := SamplePayment
		if amount, ok := in["amount"].(float64); ok {
			p.Amount = int64(amount)
		}
		return http.StatusCreated, p
	})

	ms.RegisterHandler("DELETE "+APIPrefix+"/payments/", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusNoContent, nil
	})
}

// RegisterHandler registers a handler for "METHOD /path". A pattern ending
// in "/" matches every path below it.
func (ms *MockServer) RegisterHandler(pattern string, handler HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[pattern] = handler
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.EscapedPath(),
		Query:   r.URL.RawQuery,
		Headers: r.Header.Clone(),
		Body:    body,
		Time:    time.Now(),
	})
	ms.mu.Unlock()

	ms.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.Path
	ms.mu.RLock()
	handler, exact := ms.handlers[pattern]
	if !exact {
		for p, h := range ms.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) {
				handler = h
				break
			}
		}
	}
	ms.mu.RUnlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorPayload("not_found", "no such resource"))
		return
	}

	status, response := handler(w, r)

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)

	switch v := response.(type) {
	case nil:
	case []byte:
		w.Write(v)
	case string:
		io.WriteString(w, v)
	default:
		json.NewEncoder(w).Encode(v)
	}
}

// GetRequestCount returns the total number of requests received
func (ms *MockServer) GetRequestCount() int {
	return int(ms.requestCount.Load())
}

// LastRequest returns the most recent request, or false when none arrived
func (ms *MockServer) LastRequest() (RecordedRequest, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if len(ms.requests) == 0 {
		return RecordedRequest{}, false
	}
	return ms.requests[len(ms.requests)-1], true
}

// WithErrorResponse sets up a handler that returns an error payload
func (ms *MockServer) WithErrorResponse(pattern string, statusCode int, code, message string) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return statusCode, ErrorPayload(code, message)
	})
}

// WithRawResponse sets up a handler that writes body verbatim
func (ms *MockServer) WithRawResponse(pattern string, statusCode int, body string) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return statusCode, body
	})
}

// WithDelayedResponse sets up a handler that delays before responding
func (ms *MockServer) WithDelayedResponse(pattern string, delay time.Duration, handler HandlerFunc) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		return handler(w, r)
	})
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	if ms.Server != nil {
		ms.Server.Close()
	}
}
