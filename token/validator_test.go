package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestValidator_ExplicitExpiryIsMonotonic(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pair := &token.Pair{AccessToken: "opaque", ExpiresAt: utils.Ptr(expiry)}

	for _, offset := range []time.Duration{-time.Hour, -time.Second, -time.Nanosecond} {
		v := token.NewValidator(token.WithNowFunc(fixedClock(expiry.Add(offset))))
		require.True(t, v.IsValid(pair), "offset %s", offset)
	}
	for _, offset := range []time.Duration{0, time.Nanosecond, time.Hour} {
		v := token.NewValidator(token.WithNowFunc(fixedClock(expiry.Add(offset))))
		require.False(t, v.IsValid(pair), "offset %s", offset)
	}
}

func TestValidator_FallsBackToExpClaim(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	v := token.NewValidator(token.WithNowFunc(fixedClock(now)))

	t.Run("expired one second ago", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": now.Add(-time.Second).Unix()})
		require.False(t, v.IsValid(&token.Pair{AccessToken: raw}))
	})

	t.Run("expires in the future", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": now.Add(time.Minute).Unix()})
		require.True(t, v.IsValid(&token.Pair{AccessToken: raw}))
	})

	t.Run("explicit expiry wins over claim", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
		require.False(t, v.IsValid(&token.Pair{AccessToken: raw, ExpiresAt: utils.Ptr(now)}))
	})
}

func TestValidator_UndecodableTokensAreInvalid(t *testing.T) {
	v := token.NewValidator()

	require.False(t, v.IsValid(nil))
	require.False(t, v.IsValid(&token.Pair{}))
	require.False(t, v.IsValid(&token.Pair{AccessToken: "not-a-jwt"}))
	require.False(t, v.IsValid(&token.Pair{AccessToken: signedToken(t, jwt.MapClaims{"sub": "no-exp"})}))
}

func TestExpiryOf(t *testing.T) {
	exp := time.Unix(1893456000, 0)
	got, err := token.ExpiryOf(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	_, err = token.ExpiryOf("")
	require.ErrorIs(t, err, errors.ErrNoToken)

	_, err = token.ExpiryOf("a.b.c")
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestSubjectOf(t *testing.T) {
	sub, err := token.SubjectOf(signedToken(t, jwt.MapClaims{"sub": "user-9"}))
	require.NoError(t, err)
	require.Equal(t, "user-9", sub)
}

func TestPair_OAuth2RoundTrip(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &token.Pair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}

	ot := p.OAuth2Token()
	require.Equal(t, "Bearer", ot.TokenType)
	require.Equal(t, exp, ot.Expiry)

	back := token.FromOAuth2Token(&oauth2.Token{AccessToken: "a"})
	require.Nil(t, back.ExpiresAt, "zero expiry stays absent")
	require.Nil(t, token.FromOAuth2Token(nil))

	c := p.Clone()
	*c.ExpiresAt = time.Time{}
	require.Equal(t, exp, *p.ExpiresAt)
}
