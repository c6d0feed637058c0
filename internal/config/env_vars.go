package config

import (
	"crypto/sha256"
	"os"
	"strconv"
	"time"
)

const (
	appNameVar         = "APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "LOG_LEVEL"
	credentialsPathVar = "CREDENTIALS_PATH"
	credentialsKeyVar  = "CREDENTIALS_KEY"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Remit Wallet")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

type Store struct{}

var _ StoreConfig = Store{}

// GetCredentialsPath is the bbolt file holding the token pair. Empty means in-memory only.
func (Store) GetCredentialsPath() string {
	return GetEnv(credentialsPathVar, "")
}

// GetCredentialsKey derives a 32 byte sealing key from CREDENTIALS_KEY, or nil when unset.
func (Store) GetCredentialsKey() []byte {
	secret := os.Getenv(credentialsKeyVar)
	if secret == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration string, falling back on a missing or malformed value.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetEnvFloat(envVar string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(envVar), 64)
	if err != nil {
		return defaultValue
	}
	return f
}
