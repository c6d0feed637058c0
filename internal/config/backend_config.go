package config

import "time"

type BackendConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRequestsPerSecond() float64
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8080/api")
}

func (Backend) GetRequestTimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 15*time.Second)
}

// GetRequestsPerSecond caps outbound calls through the gateway. Zero disables throttling.
func (Backend) GetRequestsPerSecond() float64 {
	return GetEnvFloat("API_RATE_LIMIT", 0)
}
