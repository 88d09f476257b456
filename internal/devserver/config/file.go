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

// FileConfig is the DTO decoded from the config file.
type FileConfig struct {
	Addr      string          `json:"addr" yaml:"addr"`
	APIKey    string          `json:"api_key" yaml:"api_key"`
	AccessKey string          `json:"access_key" yaml:"access_key"`
	SecretKey string          `json:"secret_key" yaml:"secret_key"`
	Bucket    string          `json:"bucket" yaml:"bucket"`
	PageSize  int             `json:"page_size" yaml:"page_size"`
	MaxSkew   *timex.Duration `json:"max_skew" yaml:"max_skew"`
	SeedFile  string          `json:"seed_file" yaml:"seed_file"`
	LogLevel  string          `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file given by -c or -config. The file is
// decoded as YAML when its extension says so, as JSON otherwise. Read and
// decode errors panic.
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

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.AccessKey != "" {
		cfg.AccessKey = fc.AccessKey
	}
	if fc.SecretKey != "" {
		cfg.SecretKey = fc.SecretKey
	}
	if fc.Bucket != "" {
		cfg.Bucket = fc.Bucket
	}
	if fc.PageSize > 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.MaxSkew != nil {
		cfg.MaxSkew = fc.MaxSkew.Duration
	}
	if fc.SeedFile != "" {
		cfg.SeedFile = fc.SeedFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
