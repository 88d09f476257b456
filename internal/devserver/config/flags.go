package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-k string   API signing key
//	-u string   object store access key
//	-p string   object store secret key
//	-b string   object store bucket
//	-n int      datapoints per batch
//	-s int      accepted clock skew, seconds
//	-f string   seed fixture (JSON or YAML)
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-u", "-p", "-b", "-n", "-s", "-f", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.APIKey, "k", config.APIKey, "API signing key")
	fs.StringVar(&config.AccessKey, "u", config.AccessKey, "object store access key")
	fs.StringVar(&config.SecretKey, "p", config.SecretKey, "object store secret key")
	fs.StringVar(&config.Bucket, "b", config.Bucket, "object store bucket")
	fs.IntVar(&config.PageSize, "n", config.PageSize, "datapoints per batch")
	maxSkew := fs.Int("s", int(config.MaxSkew.Seconds()), "accepted clock skew (in seconds)")
	fs.StringVar(&config.SeedFile, "f", config.SeedFile, "seed fixture")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxSkew = time.Duration(*maxSkew) * time.Second
}
