package provider

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog/log"
)

// Tokens owns the adapter's current token pair and mirrors it into the credential store.
type Tokens struct {
	mu        sync.RWMutex
	pair      *token.Pair
	store     credentials.Store
	validator *token.Validator
}

func NewTokens(store credentials.Store, validator *token.Validator) *Tokens {
	if validator == nil {
		validator = token.NewValidator()
	}
	return &Tokens{store: store, validator: validator}
}

// Pair returns a copy of the current pair, or nil.
func (t *Tokens) Pair() *token.Pair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pair.Clone()
}

func (t *Tokens) AccessToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pair == nil {
		return ""
	}
	return t.pair.AccessToken
}

func (t *Tokens) RefreshToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pair == nil {
		return ""
	}
	return t.pair.RefreshToken
}

func (t *Tokens) HasAccessToken() bool {
	return t.AccessToken() != ""
}

// IsValid applies the validity rules to the held pair.
func (t *Tokens) IsValid() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validator.IsValid(t.pair)
}

func (t *Tokens) Validator() *token.Validator {
	return t.validator
}

// Set replaces the held pair and persists it. The in-memory pair is updated even if
// the store write fails.
func (t *Tokens) Set(p *token.Pair) error {
	t.mu.Lock()
	t.pair = p.Clone()
	t.mu.Unlock()

	if t.store == nil || p == nil {
		return nil
	}
	if err := t.store.SetTokens(p.AccessToken, p.RefreshToken); err != nil {
		log.Err(err).Msg("Failed to persist token pair")
		return err
	}
	return nil
}

// Clear drops the pair from memory first, then from the store.
func (t *Tokens) Clear() error {
	t.mu.Lock()
	t.pair = nil
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	if err := t.store.Clear(); err != nil {
		log.Err(err).Msg("Failed to clear persisted tokens")
		return err
	}
	return nil
}

// Restore loads a previously persisted pair. The store keeps no expiry, so a restored
// pair always relies on the access token's own exp claim.
func (t *Tokens) Restore() (*token.Pair, error) {
	if t.store == nil {
		return nil, nil
	}
	access, err := t.store.AccessToken()
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, nil
	}
	refresh, err := t.store.RefreshToken()
	if err != nil {
		return nil, err
	}

	p := &token.Pair{AccessToken: access, RefreshToken: refresh}
	t.mu.Lock()
	t.pair = p.Clone()
	t.mu.Unlock()
	return p, nil
}
