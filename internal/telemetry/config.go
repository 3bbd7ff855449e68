package telemetry

// Config holds the configuration for telemetry
type Config struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"birbpay"`
	ServiceVersion string `split_words:"true" default:"unknown"`
	Environment    string `split_words:"true" default:"development"`

	// Logging
	LogLevel     string `split_words:"true" default:"info"`
	LogFormat    string `split_words:"true" default:"text"` // text or json
	LogsFilePath string `split_words:"true"`

	// Tracing. Spans go to TracesFilePath when set, otherwise to the OTLP
	// endpoint when set; with neither, tracing stays a no-op.
	EnableTracing  bool    `split_words:"true" default:"true"`
	OTLPEndpoint   string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracesFilePath string  `split_words:"true"`
	SamplingRate   float64 `split_words:"true" default:"1.0"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		ServiceName:    "birbpay",
		ServiceVersion: "unknown",
		Environment:    "development",
		LogLevel:       "info",
		LogFormat:      "text",
		EnableTracing:  true,
		SamplingRate:   1.0,
	}
}

func (c *Config) tracingEnabled() bool {
	return c.EnableTracing && (c.TracesFilePath != "" || c.OTLPEndpoint != "")
}
