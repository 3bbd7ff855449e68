package sdk

import (
	"context"
	"errors"
	"net/http"
)

// Do runs req through exec and returns the payload as a T. In decode mode,
// when req.Into is nil, the body is decoded into a fresh T.
//
// Example:
//
//	type Payment struct {
//	    ID     string `json:"id"`
//	    Amount int64  `json:"amount"`
//	}
//
//	payment, err := sdk.Do[Payment](ctx, client, &sdk.Request{
//	    Path: sdk.BuildPath("payments/{0}", id),
//	})
func Do[T any](ctx context.Context, exec Executor, req *Request) (T, error) {
	return DoAsync[T](ctx, exec, req).Result()
}

// DoAsync is the asynchronous form of Do.
func DoAsync[T any](ctx context.Context, exec Executor, req *Request) *Future[T] {
	if req != nil && req.Into == nil {
		req.Into = new(T)
	}
	return Map(exec.ExecuteAsync(ctx, req), As[T])
}

// As converts a pipeline payload to T. It accepts a T, a *T (as produced by
// decoding into Request.Into) or nil, which yields the zero value.
func As[T any](payload interface{}) (T, error) {
	var zero T
	switch v := payload.(type) {
	case nil:
		return zero, nil
	case *T:
		if v == nil {
			return zero, nil
		}
		return *v, nil
	case T:
		return v, nil
	}
	return zero, newErrorf(KindDecodeFailure, nil, "payload of type %T is not a %T", payload, zero)
}

// ErrorBody decodes the response body carried by err into a T. It reports
// false when err carries no response or the body does not decode.
//
// Example:
//
//	type apiError struct {
//	    Code    string `json:"code"`
//	    Message string `json:"message"`
//	}
//
//	if body, ok := sdk.ErrorBody[apiError](err); ok && body.Code == "card_declined" {
//	    // ask for another card
//	}
func ErrorBody[T any](err error) (T, bool) {
	var body T
	var sdkErr *Error
	if !errors.As(err, &sdkErr) {
		return body, false
	}
	if decodeErr := sdkErr.DecodeBody(&body); decodeErr != nil {
		return body, false
	}
	return body, true
}

// TypedClient binds an Executor to one payload type, so endpoint code reads
// without type parameters at every call site.
//
// Example:
//
//	refunds := sdk.NewTypedClient[Refund](client)
//	refund, err := refunds.Post(ctx, sdk.BuildPath("payments/{0}/refunds", id), RefundInput{Amount: 500})
type TypedClient[T any] struct {
	exec Executor
}

// NewTypedClient creates a typed wrapper around exec.
func NewTypedClient[T any](exec Executor) *TypedClient[T] {
	return &TypedClient[T]{exec: exec}
}

// Get fetches path, optionally through the cache.
func (tc *TypedClient[T]) Get(ctx context.Context, path string, policy *CachePolicy) (T, error) {
	return Do[T](ctx, tc.exec, &Request{
		Method: http.MethodGet,
		Path:   path,
		Cache:  policy,
	})
}

// Post sends body as JSON and expects 201 Created.
func (tc *TypedClient[T]) Post(ctx context.Context, path string, body interface{}) (T, error) {
	req, err := NewJSONRequest(http.MethodPost, path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	req.ExpectedStatus = http.StatusCreated
	return Do[T](ctx, tc.exec, req)
}

// Delete removes the resource at path and expects 204 No Content.
func (tc *TypedClient[T]) Delete(ctx context.Context, path string) error {
	_, err := Do[T](ctx, tc.exec, &Request{
		Method:         http.MethodDelete,
		Path:           path,
		ExpectedStatus: http.StatusNoContent,
	})
	return err
}
