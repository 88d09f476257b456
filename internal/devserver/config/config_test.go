package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"devserver"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, 100, c.PageSize)
	assert.Equal(t, 15*time.Minute, c.MaxSkew)
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(file, []byte("addr: \":9999\"\nbucket: from-file\npage_size: 5\nmax_skew: 1m\n"), 0o600))

	setArgs(t, "-c", file, "-b", "from-flag", "-f", "seed.json")
	cfg := LoadConfig()

	want := &Config{}
	want.LoadDefaults()
	want.Addr = ":9999"
	want.Bucket = "from-flag"
	want.PageSize = 5
	want.MaxSkew = time.Minute
	want.SeedFile = "seed.json"

	assert.Empty(t, cmp.Diff(want, cfg))
}

func Test_parseFile_JSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "dev.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"api_key":"k2","max_skew":"0s"}`), 0o600))
	setArgs(t, "-config", file)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)

	assert.Equal(t, "k2", cfg.APIKey)
	assert.Zero(t, cfg.MaxSkew)
}

func Test_parseFile_Invalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{ nope`), 0o600))
	setArgs(t, "-c", file)

	require.Panics(t, func() { parseFile(&Config{}) })
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		check       func(t *testing.T, c *Config)
	}{
		{name: "OK", args: []string{"-a", ":7070", "-n", "3", "-s", "0", "-l", "debug"}, check: func(t *testing.T, c *Config) {
			assert.Equal(t, ":7070", c.Addr)
			assert.Equal(t, 3, c.PageSize)
			assert.Zero(t, c.MaxSkew)
			assert.Equal(t, "debug", c.LogLevel)
		}},
		{name: "incorrect page size", args: []string{"-n", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setArgs(t, tt.args...)
			cfg := &Config{}
			cfg.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			tt.check(t, cfg)
		})
	}
}
