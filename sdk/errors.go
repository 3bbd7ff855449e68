package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for use with errors.Is. Every *Error matches the sentinel of
// its Kind.
//
// Example:
//
//	payload, err := client.Execute(ctx, req)
//	switch {
//	case errors.Is(err, sdk.ErrStatusMismatch):
//	    // the backend answered, but not with the expected status
//	case errors.Is(err, sdk.ErrTransportFailure):
//	    // the request never produced a response
//	}
var (
	// ErrTransportFailure matches connection, timeout and cancellation failures
	ErrTransportFailure = errors.New("transport failure")

	// ErrStatusMismatch matches responses whose status differs from the expected one
	ErrStatusMismatch = errors.New("unexpected response status")

	// ErrDecodeFailure matches response bodies that could not be decoded
	ErrDecodeFailure = errors.New("response decode failure")

	// ErrInvalidConfig matches configuration and request validation failures
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorKind classifies an *Error.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    switch sdkErr.Kind {
//	    case sdk.KindStatusMismatch:
//	        log.Printf("backend answered %d", sdkErr.Code)
//	    case sdk.KindDecodeFailure:
//	        log.Printf("garbled body: %v", errors.Unwrap(sdkErr))
//	    }
//	}
type ErrorKind int

const (
	// KindUnknown is the zero value. The SDK only produces it for a call that panicked.
	KindUnknown ErrorKind = iota
	// KindTransportFailure is a network, timeout or cancellation failure. Never retried by the SDK.
	KindTransportFailure
	// KindStatusMismatch is a response whose status differs from the expectation
	KindStatusMismatch
	// KindDecodeFailure is a body that is present but not valid for the expected format
	KindDecodeFailure
	// KindConfigurationInvalid is a rejected configuration value or request shape
	KindConfigurationInvalid
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransportFailure:
		return "transport_failure"
	case KindStatusMismatch:
		return "status_mismatch"
	case KindDecodeFailure:
		return "decode_failure"
	case KindConfigurationInvalid:
		return "configuration_invalid"
	default:
		return "unknown"
	}
}

// sentinel returns the package-level error matched by this kind
func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransportFailure:
		return ErrTransportFailure
	case KindStatusMismatch:
		return ErrStatusMismatch
	case KindDecodeFailure:
		return ErrDecodeFailure
	case KindConfigurationInvalid:
		return ErrInvalidConfig
	default:
		return nil
	}
}

// Error is the single error type returned by the request pipeline. It carries
// a Kind for programmatic handling, a sanitized Message, the HTTP status as
// Code when one is known, the underlying cause, and, for failures that
// produced a response, that response for later inspection of its body.
//
// Endpoint code decodes structured error bodies itself with DecodeBody or the
// generic ErrorBody helper:
//
//	type paymentError struct {
//	    Code    string `json:"code"`
//	    Message string `json:"message"`
//	}
//
//	_, err := client.Execute(ctx, req)
//	if body, ok := sdk.ErrorBody[paymentError](err); ok {
//	    log.Printf("payment declined: %s", body.Code)
//	}
type Error struct {
	// Kind categorizes the error
	Kind ErrorKind `json:"kind"`
	// Message is a sanitized human-readable description
	Message string `json:"message"`
	// Code mirrors the HTTP status of the response, 0 when there was none
	Code int `json:"code,omitempty"`
	// Method is the HTTP method of the failed call
	Method string `json:"method,omitempty"`
	// URL is the sanitized absolute URL of the failed call
	URL string `json:"url,omitempty"`
	// RequestID is the X-Request-ID sent with the call
	RequestID string `json:"request_id,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`

	cause    error
	response *Response
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error: %s (status %d)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is implements errors.Is against the kind sentinels
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Response returns the response that caused the error, or nil
func (e *Error) Response() *Response {
	return e.response
}

// Body returns the raw body of the originating response, or nil
func (e *Error) Body() []byte {
	if e.response == nil {
		return nil
	}
	return e.response.Body
}

// DecodeBody unmarshals the originating response body into v.
func (e *Error) DecodeBody(v interface{}) error {
	body := e.Body()
	if len(body) == 0 {
		return fmt.Errorf("error has no response body")
	}
	return json.Unmarshal(body, v)
}

// newError builds an *Error whose message is sanitized. cause is kept for
// errors.Unwrap but its text only ever appears in Message after sanitizing.
func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   Sanitize(message),
		Timestamp: time.Now(),
		cause:     cause,
	}
}

func newErrorf(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return newError(kind, fmt.Sprintf(format, args...), cause)
}

// withResponse attaches the originating response and mirrors its status
func (e *Error) withResponse(resp *Response) *Error {
	e.response = resp
	if resp != nil {
		e.Code = resp.StatusCode
	}
	return e
}

// withCall records the call the error belongs to
func (e *Error) withCall(method, url, requestID string) *Error {
	e.Method = method
	e.URL = Sanitize(url)
	e.RequestID = requestID
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, if any.
//
// Example:
//
//	if code, ok := sdk.StatusCode(err); ok && code == http.StatusNotFound {
//	    // payment does not exist
//	}
func StatusCode(err error) (int, bool) {
	var sdkErr *Error
	if errors.As(err, &sdkErr) && sdkErr.Code != 0 {
		return sdkErr.Code, true
	}
	return 0, false
}
