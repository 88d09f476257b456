// Package config loads runtime configuration for the fieldsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are decoded as YAML, everything else as JSON.
//  3. A .env file in the working directory (if present) and FIELDSYNC_*
//     environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   metadata API base URL
//	-k string   API signing key
//	-d string   local database DSN
//	-f string   data directory (archives and media)
//	-e string   object storage endpoint
//	-b string   object storage bucket
//	-u string   object storage access key
//	-p string   object storage secret key
//	-g string   object storage region
//	-m string   object signer: "legacy" or "sdk"
//	-s string   comma separated survey group ids
//	-i int      sync interval (seconds)
//	-t int      request timeout (seconds)
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "https://flow.example.org",
//	  "api_key": "secret",
//	  "survey_groups": [7, 12],
//	  "sync_interval": "1m",
//	  "max_backoff": "15m"
//	}
package config
