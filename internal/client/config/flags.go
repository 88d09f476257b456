package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

var shortFlags = []string{"-a", "-k", "-d", "-f", "-e", "-b", "-u", "-p", "-g", "-m", "-s", "-i", "-t"}

// parseFlags populates Config fields from command-line flags. os.Args is
// filtered with flagx.FilterArgs first, so command names and their own flags
// do not interfere. Parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], shortFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "metadata API base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "API signing key")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local database DSN")
	fs.StringVar(&cfg.DataDir, "f", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.S3Endpoint, "e", cfg.S3Endpoint, "object storage endpoint")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "object storage bucket")
	fs.StringVar(&cfg.S3AccessKey, "u", cfg.S3AccessKey, "object storage access key")
	fs.StringVar(&cfg.S3SecretKey, "p", cfg.S3SecretKey, "object storage secret key")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "object storage region")
	fs.StringVar(&cfg.ObjectSigner, "m", cfg.ObjectSigner, "object signer (legacy|sdk)")
	groups := fs.String("s", "", "comma separated survey group ids")

	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *groups != "" {
		parsed, err := parseGroups(*groups)
		if err != nil {
			panic(err)
		}
		cfg.SurveyGroups = parsed
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
