package db

import (
	"os"
	"strconv"
)

// Environment variables consulted by ConfigFromEnv.
const (
	EnvDSN     = "SQLCONSOLE_DSN"
	EnvPoolMax = "SQLCONSOLE_POOL_MAX"
)

// Config holds the base connection settings shared by every pool the
// provisioner creates. DSN is the credential-less base connection string;
// per-session credentials are appended to it to form the pooling key.
type Config struct {
	DSN     string
	PoolMax int32
}

// ConfigFromEnv reads the base configuration from the environment.
// A missing DSN is not an error here: it surfaces as ErrNoDSN on the
// first acquisition so that a misconfigured deployment answers requests
// with a server fault instead of crashing at startup.
func ConfigFromEnv() Config {
	cfg := Config{DSN: os.Getenv(EnvDSN)}
	if v := os.Getenv(EnvPoolMax); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolMax = int32(n)
		}
	}
	return cfg
}
