// Package config loads runtime configuration for the sessionkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or the
//     SESSIONKEEPER_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "https://auth.example.com",
//	  "transport": "http",
//	  "database_path": "session.db",
//	  "validity_window": "30d",
//	  "warning_window": "3d",
//	  "session_check_interval": "1m",
//	  "request_timeout": "10s",
//	  "log_level": "info",
//	  "device_secret": "change-me"
//	}
package config
