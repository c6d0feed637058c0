// Package oidcsdk is a wallet SDK binding over a standard OpenID Connect provider.
// Interactive login uses the OAuth2 device authorization grant, the verified ID token is
// the proof handed to the backend, and each connection gets an embedded secp256k1 wallet.
package oidcsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/provider/keywallet"
	"github.com/jrsteele09/go-auth-session/provider/walletsdk"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Prompt shows the user where to complete the device login.
type Prompt func(verificationURI, userCode string)

type Config struct {
	Issuer   string
	ClientID string
	AppName  string
	Network  string
	Theme    string
	Scopes   []string
}

type Option func(*SDK)

// WithKeySet verifies ID tokens against ks instead of the provider's JWKS endpoint.
func WithKeySet(ks oidc.KeySet) Option {
	return func(s *SDK) {
		s.keySet = ks
	}
}

func WithPrompt(p Prompt) Option {
	return func(s *SDK) {
		s.prompt = p
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *SDK) {
		s.httpClient = c
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *SDK) {
		s.now = now
	}
}

var (
	_ walletsdk.SDK                = (*SDK)(nil)
	_ walletsdk.ConnectionNotifier = (*SDK)(nil)
)

type SDK struct {
	cfg        Config
	prompt     Prompt
	keySet     oidc.KeySet
	httpClient *http.Client
	now        func() time.Time
	events     chan struct{}

	mu         sync.RWMutex
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	conn       *Connection
	wallet     *keywallet.Wallet
	cancelFlow context.CancelFunc
}

func New(cfg Config, options ...Option) *SDK {
	s := &SDK{
		cfg:    cfg,
		now:    time.Now,
		events: make(chan struct{}, 1),
		prompt: func(uri, code string) {
			log.Info().Str("url", uri).Str("code", code).Msg("Complete login in your browser")
		},
	}
	for _, opt := range options {
		opt(s)
	}
	if len(s.cfg.Scopes) == 0 {
		s.cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email", "phone", oidc.ScopeOfflineAccess}
	}
	return s
}

func (s *SDK) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	ctx = oidc.ClientContext(ctx, s.httpClient)
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Init runs OIDC discovery. It is a no-op once discovery has succeeded.
func (s *SDK) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oauth != nil {
		return nil
	}

	p, err := oidc.NewProvider(s.clientContext(ctx), s.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifierConfig := &oidc.Config{ClientID: s.cfg.ClientID, Now: s.now}
	if s.keySet != nil {
		s.verifier = oidc.NewVerifier(s.cfg.Issuer, s.keySet, verifierConfig)
	} else {
		s.verifier = p.Verifier(verifierConfig)
	}
	s.oauth = &oauth2.Config{
		ClientID: s.cfg.ClientID,
		Endpoint: p.Endpoint(),
		Scopes:   s.cfg.Scopes,
	}

	log.Info().
		Str("issuer", s.cfg.Issuer).
		Str("app", s.cfg.AppName).
		Str("network", s.cfg.Network).
		Msg("OIDC wallet SDK ready")
	return nil
}

func (s *SDK) Connected() <-chan struct{} {
	return s.events
}

func (s *SDK) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

func (s *SDK) Account() *provider.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.account()
}

func (s *SDK) Wallet() walletsdk.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return nil
	}
	return s.wallet
}

// Connection returns a copy of the current provider session, or nil.
func (s *SDK) Connection() *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	c := *s.conn
	return &c
}

// OpenLogin starts a device authorization flow and returns once the user has been
// prompted. A custom token login connects straight away with the supplied ID token.
func (s *SDK) OpenLogin(ctx context.Context, opts provider.LoginOptions) error {
	oauthConfig, err := s.config()
	if err != nil {
		return err
	}

	if custom, ok := opts.(provider.CustomTokenLogin); ok {
		return s.connect(ctx, &oauth2.Token{}, custom.Token)
	}

	var authOpts []oauth2.AuthCodeOption
	if opts != nil {
		if hint := opts.Identifier(); hint != "" {
			authOpts = append(authOpts, oauth2.SetAuthURLParam("login_hint", hint))
		}
		if opts.Method() == provider.MethodGoogle {
			authOpts = append(authOpts, oauth2.SetAuthURLParam("idp_hint", "google"))
		}
	}

	da, err := oauthConfig.DeviceAuth(s.clientContext(ctx), authOpts...)
	if err != nil {
		return fmt.Errorf("device authorization: %w", err)
	}
	uri := da.VerificationURIComplete
	if uri == "" {
		uri = da.VerificationURI
	}
	s.prompt(uri, da.UserCode)

	flowCtx, cancel := context.WithCancel(s.clientContext(ctx))
	s.mu.Lock()
	if s.cancelFlow != nil {
		s.cancelFlow()
	}
	s.cancelFlow = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		tok, err := oauthConfig.DeviceAccessToken(flowCtx, da)
		if err != nil {
			log.Err(err).Msg("Device login did not complete")
			return
		}
		raw, _ := tok.Extra("id_token").(string)
		if err := s.connect(flowCtx, tok, raw); err != nil {
			log.Err(err).Msg("Device login rejected")
		}
	}()
	return nil
}

// connect verifies rawIDToken and installs the connection together with a fresh wallet.
func (s *SDK) connect(ctx context.Context, tok *oauth2.Token, rawIDToken string) error {
	conn, err := s.verify(ctx, rawIDToken)
	if err != nil {
		return err
	}
	conn.AccessToken = tok.AccessToken
	conn.RefreshToken = tok.RefreshToken
	conn.CreatedAt = s.now()

	w, err := keywallet.Generate()
	if err != nil {
		return fmt.Errorf("embedded wallet: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.wallet = w
	s.mu.Unlock()

	select {
	case s.events <- struct{}{}:
	default:
	}
	log.Info().Str("sub", conn.UserID).Str("address", w.Address()).Msg("Provider session connected")
	return nil
}

func (s *SDK) verify(ctx context.Context, rawIDToken string) (*Connection, error) {
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: no ID token in response", errors.ErrInvalidToken)
	}
	s.mu.RLock()
	verifier := s.verifier
	s.mu.RUnlock()
	if verifier == nil {
		return nil, errors.ErrInitialization
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Join(errors.ErrInvalidToken, err)
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}
	return &Connection{
		UserID:        idToken.Subject,
		Email:         claims.Email,
		Phone:         claims.Phone,
		Name:          claims.Name,
		IDToken:       rawIDToken,
		Scopes:        s.cfg.Scopes,
		IDTokenExpiry: idToken.Expiry,
	}, nil
}

// ProofToken returns the current ID token, refreshing it through the token endpoint once
// it has expired.
func (s *SDK) ProofToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return "", errors.ErrNotConnected
	}
	if conn.proofValid(s.now()) {
		return conn.IDToken, nil
	}
	if conn.RefreshToken == "" {
		return "", fmt.Errorf("%w: ID token expired and no refresh token", errors.ErrSessionExpired)
	}

	oauthConfig, err := s.config()
	if err != nil {
		return "", err
	}
	tok, err := oauthConfig.TokenSource(s.clientContext(ctx), conn.oauth2Token()).Token()
	if err != nil {
		return "", errors.Join(errors.ErrSessionExpired, err)
	}
	raw, _ := tok.Extra("id_token").(string)
	next, err := s.verify(ctx, raw)
	if err != nil {
		return "", err
	}
	next.AccessToken = tok.AccessToken
	next.RefreshToken = tok.RefreshToken
	if next.RefreshToken == "" {
		next.RefreshToken = conn.RefreshToken
	}
	next.CreatedAt = conn.CreatedAt

	s.mu.Lock()
	if s.conn != nil {
		s.conn = next
	}
	s.mu.Unlock()
	return next.IDToken, nil
}

// Disconnect drops the provider session and its wallet and abandons any pending device flow.
func (s *SDK) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFlow != nil {
		s.cancelFlow()
		s.cancelFlow = nil
	}
	s.conn = nil
	s.wallet = nil
	return nil
}

func (s *SDK) OpenWalletModal(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return errors.ErrNotConnected
	}
	log.Info().
		Str("address", s.wallet.Address()).
		Str("network", s.cfg.Network).
		Str("theme", s.cfg.Theme).
		Msg("Wallet")
	return nil
}

func (s *SDK) config() (*oauth2.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oauth == nil {
		return nil, fmt.Errorf("%w: Init has not completed", errors.ErrInitialization)
	}
	return s.oauth, nil
}
