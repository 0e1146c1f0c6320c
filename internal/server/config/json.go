package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/memvault/internal/flagx"
	"github.com/dmitrijs2005/memvault/internal/timex"
)

// JsonConfig is the JSON file form of Config. Durations use timex.Duration
// so both "30s" and integer nanoseconds are accepted. Absent fields keep
// the value already in Config.
type JsonConfig struct {
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	MetricsAddr           string         `json:"metrics_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	StorageBackend        string         `json:"storage_backend"`
	InboxPrefix           string         `json:"inbox_prefix"`
	RootContainer         string         `json:"root_container"`
	RootContainerName     string         `json:"root_container_name"`
	IgnoredIdentities     []string       `json:"ignored_identities"`
	OperatorEmail         string         `json:"operator_email"`
	HeavyStorageBytes     int64          `json:"heavy_storage_bytes"`
	PassBudget            timex.Duration `json:"pass_budget"`
	PassInterval          timex.Duration `json:"pass_interval"`
	LockWait              timex.Duration `json:"lock_wait"`
	LogFormat             string         `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag into config. Without the flag nothing is loaded. If the
// file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.InboxPrefix, c.InboxPrefix)
	setString(&config.RootContainer, c.RootContainer)
	setString(&config.RootContainerName, c.RootContainerName)
	if c.IgnoredIdentities != nil {
		config.IgnoredIdentities = c.IgnoredIdentities
	}
	setString(&config.OperatorEmail, c.OperatorEmail)
	if c.HeavyStorageBytes > 0 {
		config.HeavyStorageBytes = c.HeavyStorageBytes
	}
	setDuration(&config.PassBudget, c.PassBudget)
	setDuration(&config.PassInterval, c.PassInterval)
	setDuration(&config.LockWait, c.LockWait)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
