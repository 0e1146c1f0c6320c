// Package config loads runtime configuration for the vaultctl operator CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. The MEMVAULT_TOKEN environment variable for the access token.
//  3. Optional JSON file (see parseJson) selected via -c or --config.
//  4. Command-line flags -a/--addr, -k/--token and --timeout, bound by the
//     cli package, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "timeout": "5m"
//	}
package config
