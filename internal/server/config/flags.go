package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/memvault/internal/flagx"
)

var serverFlags = []string{
	"-a", "-m", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e",
	"-storage", "-inbox", "-root", "-ignore", "-operator", "-heavy", "-budget", "-i", "-w", "-l",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address, empty disables
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t int        token validity, minutes
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-storage      storage backend, s3 or memory
//	-inbox        inbox key prefix
//	-root         root container reference
//	-ignore       comma-separated ignored identities
//	-operator     operator alert address
//	-heavy int    heavy storage threshold, bytes
//	-budget dur   pass budget (e.g., "4m40s")
//	-i dur        pass interval, 0 disables scheduled passes
//	-w dur        registry lock wait
//	-l string     log format, json or console
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with -c/-config.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidityDuration := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (s3|memory)")
	fs.StringVar(&config.InboxPrefix, "inbox", config.InboxPrefix, "inbox prefix")
	fs.StringVar(&config.RootContainer, "root", config.RootContainer, "root container reference")
	fs.Var(flagx.ListValue{Items: &config.IgnoredIdentities}, "ignore", "ignored identities, comma-separated")
	fs.StringVar(&config.OperatorEmail, "operator", config.OperatorEmail, "operator email")
	fs.Int64Var(&config.HeavyStorageBytes, "heavy", config.HeavyStorageBytes, "heavy storage threshold (bytes)")
	fs.DurationVar(&config.PassBudget, "budget", config.PassBudget, "pass budget")
	fs.DurationVar(&config.PassInterval, "i", config.PassInterval, "pass interval")
	fs.DurationVar(&config.LockWait, "w", config.LockWait, "lock wait")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|console)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidityDuration) * time.Minute
}
