// Package config loads runtime configuration for the AI accountant CLI.
//
// Sources and precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c, -config or --config.
//  3. Persistent flags of the cobra root command (--server, --state-dir,
//     --timeout), which override earlier values.
//
// JSON durations use timex.Duration, so "60s" and integer nanoseconds both
// work:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "state_dir": "~/.aiaccountant",
//	  "request_timeout": "60s"
//	}
package config
