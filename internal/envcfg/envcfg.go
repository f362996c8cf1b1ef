// Package envcfg loads process-level settings from environment
// variables. Everything an operator tunes per deployment (log output,
// metrics address, tracing) lives here; simulation parameters go
// through the command surface instead.
package envcfg

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process environment surface.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	TracingEnabled     bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingServiceName string  `env:"TRACING_SERVICE_NAME" envDefault:"scintcam-simulator"`
	TracingExporter    string  `env:"TRACING_EXPORTER" envDefault:"stdout"`
	TracingEndpoint    string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
	TracingSampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
