package oidcsdk

import (
	"time"

	"github.com/jrsteele09/go-auth-session/provider"
	"golang.org/x/oauth2"
)

// Connection is the provider-side session established by a completed login.
type Connection struct {
	// Core identity, from the verified ID token
	UserID string
	Email  string
	Phone  string
	Name   string

	// Tokens (the ID token is the proof handed to the backend)
	IDToken      string
	RefreshToken string
	AccessToken  string

	Scopes []string

	// IDTokenExpiry bounds how long IDToken can be presented as proof.
	IDTokenExpiry time.Time
	CreatedAt     time.Time
}

type idClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Phone   string `json:"phone_number"`
	Name    string `json:"name"`
}

func (c *Connection) account() *provider.Account {
	return &provider.Account{ID: c.UserID, Email: c.Email, Phone: c.Phone, Name: c.Name}
}

func (c *Connection) proofValid(now time.Time) bool {
	return c.IDToken != "" && now.Before(c.IDTokenExpiry)
}

func (c *Connection) oauth2Token() *oauth2.Token {
	// An empty access token forces the token source to use the refresh grant.
	return &oauth2.Token{RefreshToken: c.RefreshToken}
}
