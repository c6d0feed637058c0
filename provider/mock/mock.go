// Package mock provides an in-memory identity provider adapter for development and tests.
// It never touches the network and always hands out the same wallet.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/provider/keywallet"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

const (
	issuer            = "remit-mock"
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	googleIdentity    = "mock.user@gmail.com"
)

var wallet = mustWallet()

func mustWallet() *keywallet.Wallet {
	w, err := keywallet.FromSeed([]byte("remit-mock-wallet-seed"))
	if err != nil {
		panic(fmt.Sprintf("mock wallet key: %v", err))
	}
	return w
}

// WalletAddress is the checksummed address every mock user is given.
func WalletAddress() string {
	return wallet.Address()
}

type claims struct {
	Use    string `json:"use"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Method string `json:"method,omitempty"`
	jwt.RegisteredClaims
}

var _ provider.Adapter = (*Adapter)(nil)

type Option func(*Adapter)

func WithValidator(v *token.Validator) Option {
	return func(a *Adapter) {
		a.validator = v
	}
}

func WithTokenTTL(access, refresh time.Duration) Option {
	return func(a *Adapter) {
		a.accessTTL = access
		a.refreshTTL = refresh
	}
}

func WithSigningSecret(secret []byte) Option {
	return func(a *Adapter) {
		a.secret = secret
	}
}

func WithDirectory(d *Directory) Option {
	return func(a *Adapter) {
		a.directory = d
	}
}

// Adapter is the mock identity provider.
type Adapter struct {
	mu          sync.RWMutex
	user        *users.User
	initialized bool
	flows       int

	loginErr   error
	logoutErr  error
	refreshErr error

	tokens     *provider.Tokens
	status     provider.Status
	validator  *token.Validator
	directory  *Directory
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(store credentials.Store, options ...Option) *Adapter {
	a := &Adapter{
		secret:     []byte("remit-mock-signing-secret"),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.validator == nil {
		a.validator = token.NewValidator()
	}
	if a.directory == nil {
		a.directory = NewDirectory()
	}
	a.tokens = provider.NewTokens(store, a.validator)
	return a
}

// SetLoginError makes every following Login fail with err until cleared with nil.
func (a *Adapter) SetLoginError(err error) {
	a.mu.Lock()
	a.loginErr = err
	a.mu.Unlock()
}

func (a *Adapter) SetLogoutError(err error) {
	a.mu.Lock()
	a.logoutErr = err
	a.mu.Unlock()
}

func (a *Adapter) SetRefreshError(err error) {
	a.mu.Lock()
	a.refreshErr = err
	a.mu.Unlock()
}

// Flows is the number of times the interactive login flow has run.
func (a *Adapter) Flows() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.flows
}

func (a *Adapter) Directory() *Directory {
	return a.directory
}

func (a *Adapter) Initialize(ctx context.Context) {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return
	}
	a.initialized = true
	a.mu.Unlock()

	done := a.status.Begin()
	defer done()

	pair, err := a.tokens.Restore()
	if err != nil {
		log.Err(err).Msg("Failed to read stored credentials")
		a.status.Fail(errors.Join(errors.ErrInitialization, err))
		return
	}
	if pair == nil {
		return
	}

	if !a.tokens.IsValid() {
		if a.RefreshToken(ctx) == nil {
			log.Info().Msg("Stored mock session expired")
			return
		}
	}

	c, err := a.parse(a.tokens.AccessToken(), "access")
	if err != nil {
		log.Err(err).Msg("Stored access token rejected")
		_ = a.tokens.Clear()
		a.status.Fail(errors.Join(errors.ErrInitialization, err))
		return
	}

	u, err := a.directory.GetByID(c.Subject)
	if err != nil {
		u = a.buildUser(c.Subject, c.Email, c.Phone)
		_ = a.directory.Upsert(c.identifier(), u)
	}

	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
	log.Info().Str("userID", u.ID).Msg("Restored mock session")
}

func (a *Adapter) Login(ctx context.Context, opts provider.LoginOptions) (*users.User, error) {
	if u := a.connectedUser(); u != nil {
		return u, nil
	}

	done := a.status.Begin()
	defer done()
	a.status.ClearError()

	if err := ctx.Err(); err != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
	}
	if opts == nil {
		opts = provider.GoogleLogin{}
	}
	if err := opts.Validate(); err != nil {
		return nil, a.status.Fail(err)
	}

	a.mu.Lock()
	a.flows++
	injected := a.loginErr
	a.mu.Unlock()
	if injected != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, injected))
	}

	email, phone := contactFor(opts)
	identifier := identifierFor(opts.Method(), email, phone, opts.Identifier())
	now := a.validator.Now()

	u := a.directory.Ensure(identifier, func(id string) *users.User {
		return a.buildUser(id, email, phone)
	}, now)
	u, err := a.directory.Touch(u.ID, now)
	if err != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
	}

	pair, err := a.mint(u, string(opts.Method()))
	if err != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
	}
	if err := a.tokens.Set(pair); err != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
	}

	a.mu.Lock()
	a.user = u
	a.mu.Unlock()

	log.Info().Str("userID", u.ID).Str("method", string(opts.Method())).Msg("Mock login succeeded")
	return u.Clone(), nil
}

// Logout always clears local state. An injected logout error is reported afterwards.
func (a *Adapter) Logout(_ context.Context) error {
	done := a.status.Begin()
	defer done()

	a.mu.Lock()
	a.user = nil
	injected := a.logoutErr
	a.mu.Unlock()

	clearErr := a.tokens.Clear()
	if injected != nil {
		return a.status.Fail(errors.Join(errors.ErrLogout, injected))
	}
	if clearErr != nil {
		return a.status.Fail(errors.Join(errors.ErrLogout, clearErr))
	}
	return nil
}

func (a *Adapter) User(_ context.Context) *users.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	return a.user.Clone()
}

func (a *Adapter) CurrentUser() *users.User {
	return a.connectedUser()
}

func (a *Adapter) IsAuthenticated() bool {
	return a.IsConnected()
}

func (a *Adapter) Token(ctx context.Context) (string, bool) {
	if a.tokens.IsValid() {
		return a.tokens.AccessToken(), true
	}
	if a.tokens.RefreshToken() == "" {
		return "", false
	}
	if pair := a.RefreshToken(ctx); pair != nil {
		return pair.AccessToken, true
	}
	return "", false
}

func (a *Adapter) IsTokenValid() bool {
	return a.tokens.IsValid()
}

// RefreshToken mints a new pair from the current refresh token. Any failure logs the user out.
func (a *Adapter) RefreshToken(_ context.Context) *token.Pair {
	done := a.status.Begin()
	defer done()

	a.mu.RLock()
	injected := a.refreshErr
	a.mu.RUnlock()

	fail := func(err error) *token.Pair {
		log.Err(err).Msg("Mock token refresh failed")
		a.mu.Lock()
		a.user = nil
		a.mu.Unlock()
		_ = a.tokens.Clear()
		a.status.Fail(errors.Join(errors.ErrSessionExpired, err))
		return nil
	}

	if injected != nil {
		return fail(injected)
	}
	refresh := a.tokens.RefreshToken()
	if refresh == "" {
		return fail(errors.ErrNoToken)
	}
	c, err := a.parse(refresh, "refresh")
	if err != nil {
		return fail(err)
	}

	u := &users.User{ID: c.Subject, Email: c.Email, Phone: c.Phone}
	if known, err := a.directory.GetByID(c.Subject); err == nil {
		u = known
	}
	pair, err := a.mint(u, c.Method)
	if err != nil {
		return fail(err)
	}
	if err := a.tokens.Set(pair); err != nil {
		return fail(err)
	}
	return pair.Clone()
}

func (a *Adapter) IsLoading() bool { return a.status.IsLoading() }
func (a *Adapter) Error() error    { return a.status.Error() }
func (a *Adapter) ClearError()     { a.status.ClearError() }

func (a *Adapter) SignMessage(ctx context.Context, message string) (string, error) {
	if !a.IsConnected() {
		return "", errors.ErrNotConnected
	}
	return wallet.SignMessage(ctx, message)
}

func (a *Adapter) SignTransaction(ctx context.Context, payload []byte) ([]byte, error) {
	if !a.IsConnected() {
		return nil, errors.ErrNotConnected
	}
	return wallet.SignTransaction(ctx, payload)
}

func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	hasUser := a.user != nil
	a.mu.RUnlock()
	return hasUser && a.tokens.HasAccessToken()
}

func (a *Adapter) CurrentAccount() *provider.Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	return &provider.Account{ID: a.user.ID, Email: a.user.Email, Phone: a.user.Phone, Name: a.user.Name()}
}

func (a *Adapter) CurrentWallet() *provider.WalletInfo {
	if !a.IsConnected() {
		return nil
	}
	return &provider.WalletInfo{Address: wallet.Address(), Wallets: wallet.Wallets()}
}

func (a *Adapter) OpenWalletModal(_ context.Context) error {
	if !a.IsConnected() {
		return errors.ErrNotConnected
	}
	log.Debug().Str("address", WalletAddress()).Msg("Mock wallet modal opened")
	return nil
}

func (a *Adapter) connectedUser() *users.User {
	if !a.IsConnected() {
		return nil
	}
	return a.User(context.Background())
}

func (a *Adapter) buildUser(id, email, phone string) *users.User {
	name := "Mock User"
	if email != "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return &users.User{
		ID:                id,
		Email:             email,
		Phone:             phone,
		DisplayName:       name,
		PreferredLanguage: "en",
		Status:            users.StatusActive,
		WalletAddress:     wallet.Address(),
		Wallets:           wallet.Wallets(),
	}
}

func (a *Adapter) mint(u *users.User, method string) (*token.Pair, error) {
	now := a.validator.Now()
	accessExp := now.Add(a.accessTTL)

	sign := func(use string, exp time.Time) (string, error) {
		c := claims{
			Use:    use,
			Email:  u.Email,
			Phone:  u.Phone,
			Method: method,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   u.ID,
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	}

	access, err := sign("access", accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := sign("refresh", now.Add(a.refreshTTL))
	if err != nil {
		return nil, err
	}
	return &token.Pair{AccessToken: access, RefreshToken: refresh, ExpiresAt: &accessExp}, nil
}

func (a *Adapter) parse(raw, use string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.validator.Now),
	)
	if err != nil {
		return nil, errors.Join(errors.ErrInvalidToken, err)
	}
	if c.Use != use || c.Subject == "" {
		return nil, fmt.Errorf("%w: expected %s token", errors.ErrInvalidToken, use)
	}
	return c, nil
}

func (c *claims) identifier() string {
	return identifierFor(provider.LoginMethod(c.Method), c.Email, c.Phone, "")
}

func contactFor(opts provider.LoginOptions) (email, phone string) {
	switch o := opts.(type) {
	case provider.EmailLogin:
		return o.Identifier(), ""
	case provider.PhoneLogin:
		return "", o.Identifier()
	case provider.GoogleLogin:
		return googleIdentity, ""
	case provider.CustomTokenLogin:
		if sub, err := token.SubjectOf(o.Token); err == nil && strings.Contains(sub, "@") {
			return strings.ToLower(sub), ""
		}
	}
	return "", ""
}

// identifierFor keys the directory by contact detail so the same person logging in by
// different methods lands on one account.
func identifierFor(method provider.LoginMethod, email, phone, fallback string) string {
	switch {
	case email != "":
		return "email:" + email
	case phone != "":
		return "phone:" + phone
	case fallback != "":
		return string(method) + ":" + fallback
	default:
		return string(method)
	}
}
