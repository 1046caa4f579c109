// Package config loads runtime configuration for the storefront CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables prefixed with STOREFRONT_, after loading the
//     dotenv file given with -e/-env-file (or ./.env when present).
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   API base URL
//	-t int      request timeout (seconds)
//	-d string   path of the local database
//	-l string   log level
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://dummyjson.com",
//	  "request_timeout": "10s",
//	  "db_path": "storefront.db",
//	  "log_level": "warn",
//	  "log_format": "text",
//	  "page_size": 12,
//	  "token_lifetime_mins": 60
//	}
//
// # Environment
//
//	STOREFRONT_API_BASE_URL, STOREFRONT_REQUEST_TIMEOUT (e.g. "10s"),
//	STOREFRONT_DB_PATH, STOREFRONT_LOG_LEVEL, STOREFRONT_LOG_FORMAT,
//	STOREFRONT_PAGE_SIZE, STOREFRONT_TOKEN_LIFETIME_MINS
package config
