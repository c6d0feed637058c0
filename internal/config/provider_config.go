package config

import "time"

type ProviderConfig interface {
	GetAdapter() string
	GetProviderName() string
	GetProviderAPIKey() string
	GetProviderAppName() string
	GetProviderNetwork() string
	GetProviderTheme() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetLoginTimeout() time.Duration
	GetLoginPollInterval() time.Duration
}

type Provider struct{}

var _ ProviderConfig = Provider{}

// GetAdapter selects the identity provider adapter: "real" or "mock".
func (Provider) GetAdapter() string {
	return GetEnv("AUTH_ADAPTER", "real")
}

// GetProviderName is the path segment used for the backend token exchange (/auth/<name>/validate).
func (Provider) GetProviderName() string {
	return GetEnv("PROVIDER_NAME", "wallet")
}

func (Provider) GetProviderAPIKey() string {
	return GetEnv("PROVIDER_API_KEY", "")
}

func (Provider) GetProviderAppName() string {
	return GetEnv("PROVIDER_APP_NAME", "Remit Wallet")
}

func (Provider) GetProviderNetwork() string {
	return GetEnv("PROVIDER_NETWORK", "sepolia")
}

func (Provider) GetProviderTheme() string {
	return GetEnv("PROVIDER_THEME", "dark")
}

func (Provider) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Provider) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Provider) GetLoginTimeout() time.Duration {
	return GetEnvDuration("LOGIN_TIMEOUT", 5*time.Minute)
}

func (Provider) GetLoginPollInterval() time.Duration {
	return GetEnvDuration("LOGIN_POLL_INTERVAL", 500*time.Millisecond)
}
