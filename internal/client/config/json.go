package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/memvault/internal/flagx"
	"github.com/dmitrijs2005/memvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token"`
	Timeout            timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the non-empty values of the JSON file named
// by -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
}
