package sdk

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// RawHandler turns a raw response into a payload in wrap-response mode.
type RawHandler func(resp *Response) (interface{}, error)

// ResponseWrapper turns a transport response into the caller's payload. In
// decode mode the body is parsed as JSON; in wrap mode the raw response is
// handed to the request's RawHandler, or returned as is.
//
// Both modes enforce the expected status first and treat 204 No Content the
// same way: the payload is nil and no body is read.
type ResponseWrapper struct {
	wrap bool
}

// NewResponseWrapper returns a wrapper in wrap mode when wrap is true and in
// decode mode otherwise.
func NewResponseWrapper(wrap bool) ResponseWrapper {
	return ResponseWrapper{wrap: wrap}
}

// Handle dispatches on the mode using the request's expectation, decode
// destination and raw handler.
func (w ResponseWrapper) Handle(resp *Response, req *Request) (interface{}, error) {
	if w.wrap {
		return w.Wrap(resp, req.expectedStatus(), req.RawHandler)
	}
	return w.Decode(resp, req.expectedStatus(), req.Into)
}

// Decode validates the status and parses the body as JSON. When into is
// non-nil the body is decoded into it and into is returned; otherwise the
// body is decoded into a generic value. An empty body yields nil.
func (w ResponseWrapper) Decode(resp *Response, expected int, into interface{}) (interface{}, error) {
	if err := checkStatus(resp, expected); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	if into != nil {
		if err := json.Unmarshal(resp.Body, into); err != nil {
			return nil, newErrorf(KindDecodeFailure, err, "failed to decode response body: %v", err).withResponse(resp)
		}
		return into, nil
	}

	var payload interface{}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, newErrorf(KindDecodeFailure, err, "failed to decode response body: %v", err).withResponse(resp)
	}
	return payload, nil
}

// Wrap validates the status and returns handler's result verbatim, or the
// response itself when handler is nil.
func (w ResponseWrapper) Wrap(resp *Response, expected int, handler RawHandler) (interface{}, error) {
	if err := checkStatus(resp, expected); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if handler == nil {
		return resp, nil
	}
	return handler(resp)
}

// checkStatus accepts exactly the expected status, plus 204 when any 2xx
// status was expected.
func checkStatus(resp *Response, expected int) error {
	if expected == 0 {
		expected = http.StatusOK
	}
	if resp.StatusCode == expected {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent && is2xx(expected) {
		return nil
	}
	return newErrorf(KindStatusMismatch, nil, "expected status %d, got %d", expected, resp.StatusCode).withResponse(resp)
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}
