// Package config handles configuration for the development backend,
// including defaults, a JSON or YAML file overlay and command-line flags.
package config

import "time"

// Config holds runtime settings for the development backend.
//
// Fields:
//   - Addr: HTTP bind address serving both the metadata API and the object store.
//   - APIKey: shared secret verifying signed metadata requests.
//   - AccessKey / SecretKey / Bucket: credentials and bucket of the object store.
//   - PageSize: datapoints returned per pull batch.
//   - MaxSkew: accepted clock difference of signed requests, zero disables the check.
//   - SeedFile: optional fixture with survey groups, datapoints and forms.
type Config struct {
	Addr      string
	APIKey    string
	AccessKey string
	SecretKey string
	Bucket    string
	PageSize  int
	MaxSkew   time.Duration
	SeedFile  string
	LogLevel  string
}

// LoadDefaults populates Config with values matching the client defaults.
// NOTE: the credentials are for local development only.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.APIKey = "dev-api-key"
	c.AccessKey = "dev-access-key"
	c.SecretKey = "dev-secret-key"
	c.Bucket = "fieldsync"
	c.PageSize = 100
	c.MaxSkew = 15 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
