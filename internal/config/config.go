package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	ProviderConfig
	BackendConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type StoreConfig interface {
	GetCredentialsPath() string
	GetCredentialsKey() []byte
}

type mainConfig struct {
	EnvVars
	Provider
	Backend
	Store
}

func New() Config {
	return mainConfig{}
}

// LoadEnvFile copies variables from the given dotenv files (default .env) into the process
// environment. Variables already set are left alone and missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
