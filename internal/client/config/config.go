package config

import (
	"os"
	"time"
)

// TokenEnv names the environment variable holding the access token.
const TokenEnv = "MEMVAULT_TOKEN"

// Config holds runtime settings for vaultctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the memvault gRPC endpoint.
//   - AccessToken: bearer token sent with every call.
//   - Timeout: per-call deadline; passes can take several minutes.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	Timeout            time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.AccessToken = os.Getenv(TokenEnv)
	c.Timeout = 6 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present). Command-line flags are bound later by the cli
// package on top of the result.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}
