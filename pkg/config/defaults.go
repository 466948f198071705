package config

import (
	"strings"
	"time"
)

const (
	defaultLeaseDuration    = 90 * time.Second
	defaultSessionCacheSize = 5000
	defaultSessionTTLFactor = 2
	defaultMaxSlots         = 64
)

// ApplyDefaults fills zero-valued fields with defaults. Explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyStateDefaults(&cfg.State)
	applyStoreDefaults(&cfg.Store)
	applyAPIDefaults(&cfg.API)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "inuse_space", "goroutines", "mutex_count"}
	}
}

func applyStateDefaults(cfg *StateConfig) {
	if cfg.LeaseDuration == 0 {
		cfg.LeaseDuration = defaultLeaseDuration
	}
	if cfg.SessionCacheSize == 0 {
		cfg.SessionCacheSize = defaultSessionCacheSize
	}
	if cfg.SessionCacheTTLFactor == 0 {
		cfg.SessionCacheTTLFactor = defaultSessionTTLFactor
	}
	if cfg.MaxSlots == 0 {
		cfg.MaxSlots = defaultMaxSlots
	}
	if cfg.ReaperInterval == 0 {
		cfg.ReaperInterval = cfg.LeaseDuration / 4
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Path == "" {
		cfg.Path = "/var/lib/nfs4state/clients"
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// GetDefaultConfig returns a Config with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		State: StateConfig{GracePeriod: defaultLeaseDuration},
		API:   APIConfig{Enabled: true},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
