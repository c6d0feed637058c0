package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// Validator decides whether an access token can still be presented.
type Validator struct {
	nowFunc func() time.Time
}

type ValidatorOption func(*Validator)

func WithNowFunc(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = now
	}
}

func NewValidator(options ...ValidatorOption) *Validator {
	v := &Validator{}
	for _, opt := range options {
		opt(v)
	}
	if v.nowFunc == nil {
		v.nowFunc = time.Now
	}
	return v
}

// Now returns the validator's clock reading.
func (v *Validator) Now() time.Time {
	return v.nowFunc()
}

// IsValid reports whether the pair's access token is usable right now.
// A token with no recoverable expiry is never treated as valid.
func (v *Validator) IsValid(p *Pair) bool {
	if p == nil || strings.TrimSpace(p.AccessToken) == "" {
		return false
	}
	exp := p.ExpiresAt
	if exp == nil {
		decoded, err := ExpiryOf(p.AccessToken)
		if err != nil {
			return false
		}
		exp = &decoded
	}
	return v.nowFunc().Before(*exp)
}

// ExpiryOf reads the exp claim of a JWT without verifying its signature.
func ExpiryOf(rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, errors.ErrNoToken
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, errors.Join(errors.ErrInvalidToken, err)
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: error extracting claims", errors.ErrInvalidToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Join(errors.ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: token missing exp claim", errors.ErrInvalidToken)
	}
	return exp.Time, nil
}

// SubjectOf reads the sub claim of a JWT without verifying its signature.
func SubjectOf(rawToken string) (string, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return "", errors.Join(errors.ErrInvalidToken, err)
	}
	sub, err := unverified.Claims.GetSubject()
	if err != nil {
		return "", errors.Join(errors.ErrInvalidToken, err)
	}
	return sub, nil
}
