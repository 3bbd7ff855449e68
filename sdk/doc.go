// Package sdk is the request transport layer of the Birb Pay merchant client.
// It turns endpoint calls into HTTPS requests and their responses into typed
// payloads or typed errors.
//
// # Features
//
// The SDK provides:
//   - A single request pipeline with blocking and asynchronous execution
//   - Bearer authentication and header merging where caller headers win
//   - Optional gzip compression of request bodies above a size threshold
//   - One-shot response caching for GET calls (in memory, Redis or PostgreSQL)
//   - Decode and wrap-response modes with a uniform 204 No Content rule
//   - A single *Error type classified by Kind, with the failing response body
//   - Sanitization of credentials in every log line and error message
//   - A libtool-style server version check on configuration fetch
//   - OpenTelemetry spans and trace propagation, and observer hooks for metrics
//
// # Basic Usage
//
//	cfg, err := sdk.NewConfig("https://api.payments.example.com/v2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.SetAuthToken(os.Getenv("MERCHANT_TOKEN"))
//
//	client, err := sdk.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	payment, err := sdk.Do[Payment](ctx, client, &sdk.Request{
//	    Path: sdk.BuildPath("payments/{0}", id),
//	})
//
// # Caching
//
// A GET request carrying a CachePolicy is answered from the configured cache
// when an entry exists, and stored there after a successful call otherwise.
// The policy is consumed by that one call:
//
//	client, _ := sdk.NewClient(cfg, sdk.WithCacheStore(sdk.NewMemoryCache()))
//	_, err := client.Execute(ctx, &sdk.Request{
//	    Path:  "configuration",
//	    Cache: sdk.WithCache(time.Minute, "cfg"),
//	})
//
// # Error Handling
//
//	_, err := client.Execute(ctx, req)
//	switch sdk.KindOf(err) {
//	case sdk.KindTransportFailure:
//	    // network, timeout or cancellation; never retried by the SDK
//	case sdk.KindStatusMismatch:
//	    body, _ := sdk.ErrorBody[APIError](err)
//	case sdk.KindDecodeFailure:
//	    // the body was not valid JSON
//	}
//
// # Thread Safety
//
// Config, Client, Pipeline, MemoryCache and CachePolicy are safe for
// concurrent use. A CachePolicy belongs to one call; passing the same policy
// to concurrent calls makes which of them caches unpredictable.
package sdk
