// Package credentials defines the durable home of the access and refresh tokens.
package credentials

// Fixed keys the token pair is stored under.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store persists the two bearer strings. It holds no logic beyond get, set and clear;
// an entry that was never written reads back as the empty string.
type Store interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetTokens(accessToken, refreshToken string) error
	Clear() error
}

// StoreError indicates a credential storage error.
type StoreError struct {
	Operation string // "load", "save", "clear"
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credentials"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
