package sdktest

import (
	"strings"
	"time"
)

const (
	// CompatibleServerVersion supports client interfaces 4 through 6
	CompatibleServerVersion = "6:0:2"
	// IncompatibleServerVersion only supports client interfaces 7 and 8
	IncompatibleServerVersion = "8:1:1"
	// TestToken is the bearer token used throughout the tests
	TestToken = "tok_test_4eC39HqLyjWDarjtT1zdp7dc"
)

// Payment is the payment resource served by the mock API
type Payment struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// APIError is the error body the mock API returns
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SamplePayment is returned by the default payment handlers
var SamplePayment = Payment{
	ID:        "pay_123",
	Amount:    2500,
	Currency:  "EUR",
	Status:    "succeeded",
	CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	Metadata:  map[string]string{"order": "ord_42"},
}

// ServerConfiguration returns a configuration payload advertising version
func ServerConfiguration(version string) map[string]interface{} {
	return map[string]interface{}{
		"version":     version,
		"environment": "sandbox",
		"features": map[string]interface{}{
			"refunds":         true,
			"partial_capture": false,
		},
	}
}

// ErrorPayload builds an APIError body
func ErrorPayload(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// LargeJSON returns a JSON document of at least size bytes
func LargeJSON(size int) []byte {
	pad := size
	if pad < 1 {
		pad = 1
	}
	return []byte(`{"note":"` + strings.Repeat("x", pad) + `"}`)
}
