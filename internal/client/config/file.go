package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

var fileFlags = []string{"-c", "-config"}

// FileConfig is a DTO used exclusively for decoding config files. Absent
// keys leave the corresponding Config fields untouched.
type FileConfig struct {
	APIBaseURL  string `json:"api_base_url" yaml:"api_base_url"`
	APIKey      string `json:"api_key" yaml:"api_key"`
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`
	DataDir     string `json:"data_dir" yaml:"data_dir"`

	S3Endpoint   string `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3Bucket     string `json:"s3_bucket" yaml:"s3_bucket"`
	S3AccessKey  string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey  string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Region     string `json:"s3_region" yaml:"s3_region"`
	ObjectSigner string `json:"object_signer" yaml:"object_signer"`
	PublicMedia  *bool  `json:"public_media" yaml:"public_media"`

	SyncInterval   *timex.Duration `json:"sync_interval" yaml:"sync_interval"`
	RequestTimeout *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxBackoff     *timex.Duration `json:"max_backoff" yaml:"max_backoff"`

	AndroidID   string `json:"android_id" yaml:"android_id"`
	IMEI        string `json:"imei" yaml:"imei"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	AppVersion  string `json:"app_version" yaml:"app_version"`

	SurveyGroups []int64 `json:"survey_groups" yaml:"survey_groups"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// parseFile overlays cfg with the file named by -c or -config. Read and
// decode errors panic, like invalid flags do.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setString(&cfg.APIKey, fc.APIKey)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.DataDir, fc.DataDir)

	setString(&cfg.S3Endpoint, fc.S3Endpoint)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3AccessKey, fc.S3AccessKey)
	setString(&cfg.S3SecretKey, fc.S3SecretKey)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.ObjectSigner, fc.ObjectSigner)
	if fc.PublicMedia != nil {
		cfg.PublicMedia = *fc.PublicMedia
	}

	if fc.SyncInterval != nil {
		cfg.SyncInterval = fc.SyncInterval.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.MaxBackoff != nil {
		cfg.MaxBackoff = fc.MaxBackoff.Duration
	}

	setString(&cfg.AndroidID, fc.AndroidID)
	setString(&cfg.IMEI, fc.IMEI)
	setString(&cfg.PhoneNumber, fc.PhoneNumber)
	setString(&cfg.AppVersion, fc.AppVersion)

	if fc.SurveyGroups != nil {
		cfg.SurveyGroups = fc.SurveyGroups
	}

	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
