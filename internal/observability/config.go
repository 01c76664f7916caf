package observability

import "fmt"

// Exporters understood by Init.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ServiceName is the resource service.name of everything glogin exports.
const ServiceName = "glogin"

// Config selects where spans and login metrics go.
type Config struct {
	Exporter string
	// Endpoint is the OTLP collector gRPC address.
	Endpoint    string
	ServiceName string
	// SampleRate is the fraction of root spans kept, 0.0 to 1.0.
	SampleRate     float64
	MetricsEnabled bool
	TracesEnabled  bool
}

// NewConfig returns a config with exporting off.
func NewConfig() *Config {
	return &Config{
		Exporter:    ExporterNone,
		Endpoint:    "localhost:4317",
		ServiceName: ServiceName,
		SampleRate:  0.1,
	}
}

// ShouldEnable reports whether an exporter is selected.
func (c *Config) ShouldEnable() bool {
	return c.Exporter != ExporterNone && c.Exporter != ""
}

// Validate rejects unknown exporters and out of range sample rates.
func (c *Config) Validate() error {
	switch c.Exporter {
	case ExporterNone, ExporterStdout, ExporterOTLP, "":
	default:
		return fmt.Errorf("unknown exporter: %s", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}
