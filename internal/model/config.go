package model

import "time"

// Config is the full runtime configuration
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Audit  AuditConfig  `yaml:"audit" mapstructure:"audit"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// APIConfig configures the external area store client
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Token        string        `yaml:"token" mapstructure:"token"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerS float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst        int           `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig configures the lint result cache
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// AuditConfig configures corpus audits
type AuditConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures report output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "https://api.btcmap.org",
			Timeout:      20 * time.Second,
			RequestsPerS: 5,
			Burst:        5,
		},
		Cache: CacheConfig{
			TTL:             30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Audit: AuditConfig{
			Workers: 8,
		},
	}
}
