package config

import (
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

// Config holds runtime settings for the fieldsync client.
type Config struct {
	APIBaseURL  string
	APIKey      string
	DatabaseDSN string
	DataDir     string

	S3Endpoint   string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Region     string
	ObjectSigner string
	PublicMedia  bool

	SyncInterval   time.Duration
	RequestTimeout time.Duration
	MaxBackoff     time.Duration

	AndroidID   string
	IMEI        string
	PhoneNumber string
	AppVersion  string

	SurveyGroups []int64

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with development defaults matching cmd/devserver.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.APIKey = "dev-api-key"
	c.DataDir = "fieldsync-data"

	c.S3Endpoint = "http://127.0.0.1:8080"
	c.S3Bucket = "fieldsync"
	c.S3AccessKey = "dev-access-key"
	c.S3SecretKey = "dev-secret-key"
	c.S3Region = "us-east-1"
	c.ObjectSigner = "legacy"
	c.PublicMedia = true

	c.SyncInterval = time.Minute
	c.RequestTimeout = 30 * time.Second
	c.MaxBackoff = 15 * time.Minute

	c.AppVersion = "1.0.0"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file, the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// DSN returns DatabaseDSN, or the database file inside DataDir when unset.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	return filepath.Join(c.DataDir, "fieldsync.db")
}

// Args returns os-style arguments with every flag handled by this package
// removed, so the remaining ones can be passed to the command parser.
func Args(args []string) []string {
	return flagx.StripArgs(args, append(append([]string{}, fileFlags...), shortFlags...))
}
