package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "FIELDSYNC_"

// envFiles are loaded before the environment is read. Missing files are
// ignored; variables already set in the process environment win.
var envFiles = []string{".env"}

// parseEnv overlays cfg with FIELDSYNC_* variables. Malformed numbers and
// durations panic.
func parseEnv(cfg *Config) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			panic(err)
		}
	}

	envString(&cfg.APIBaseURL, "API_BASE_URL")
	envString(&cfg.APIKey, "API_KEY")
	envString(&cfg.DatabaseDSN, "DATABASE_DSN")
	envString(&cfg.DataDir, "DATA_DIR")

	envString(&cfg.S3Endpoint, "S3_ENDPOINT")
	envString(&cfg.S3Bucket, "S3_BUCKET")
	envString(&cfg.S3AccessKey, "S3_ACCESS_KEY")
	envString(&cfg.S3SecretKey, "S3_SECRET_KEY")
	envString(&cfg.S3Region, "S3_REGION")
	envString(&cfg.ObjectSigner, "OBJECT_SIGNER")
	if v, ok := lookup("PUBLIC_MEDIA"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("invalid %sPUBLIC_MEDIA: %w", EnvPrefix, err))
		}
		cfg.PublicMedia = b
	}

	envDuration(&cfg.SyncInterval, "SYNC_INTERVAL")
	envDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	envDuration(&cfg.MaxBackoff, "MAX_BACKOFF")

	envString(&cfg.AndroidID, "ANDROID_ID")
	envString(&cfg.IMEI, "IMEI")
	envString(&cfg.PhoneNumber, "PHONE_NUMBER")
	envString(&cfg.AppVersion, "APP_VERSION")

	if v, ok := lookup("SURVEY_GROUPS"); ok {
		groups, err := parseGroups(v)
		if err != nil {
			panic(err)
		}
		cfg.SurveyGroups = groups
	}

	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
	}
	*dst = d
}

// parseGroups reads a comma separated list of survey group ids.
func parseGroups(s string) ([]int64, error) {
	groups := make([]int64, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid survey group %q: %w", part, err)
		}
		groups = append(groups, id)
	}
	return groups, nil
}
