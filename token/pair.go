package token

import (
	"time"

	"github.com/jrsteele09/go-auth-session/internal/utils"
	"golang.org/x/oauth2"
)

// Pair is the bearer credential set issued by the backend.
// ExpiresAt is optional; when absent validity is read from the access token's exp claim.
type Pair struct {
	AccessToken  string     `json:"access_token"`            // Bearer credential for backend calls
	RefreshToken string     `json:"refresh_token,omitempty"` // Used to mint a new access token
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`    // Absolute expiry, when known
}

// Clone returns a copy that does not share the expiry pointer.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	c := *p
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// OAuth2Token converts the pair into an oauth2.Token.
func (p *Pair) OAuth2Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
	if p.ExpiresAt != nil {
		t.Expiry = *p.ExpiresAt
	}
	return t
}

// FromOAuth2Token builds a pair from an oauth2.Token. A zero expiry stays absent.
func FromOAuth2Token(t *oauth2.Token) *Pair {
	if t == nil {
		return nil
	}
	return &Pair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, ExpiresAt: utils.TimePtr(t.Expiry)}
}
