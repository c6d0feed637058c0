package walletsdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLoginTimeout = 5 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond
	DefaultProviderName = "wallet"
)

var _ provider.Adapter = (*Adapter)(nil)

type Option func(*Adapter)

func WithLoginTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.loginTimeout = d
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

func WithValidator(v *token.Validator) Option {
	return func(a *Adapter) {
		a.validator = v
	}
}

// WithProviderName sets the <provider> segment of the backend validate endpoint.
func WithProviderName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.providerName = name
		}
	}
}

// Adapter is the real identity provider adapter.
type Adapter struct {
	sdk     SDK
	backend Exchanger
	tokens  *provider.Tokens
	status  provider.Status

	validator    *token.Validator
	providerName string
	loginTimeout time.Duration
	pollInterval time.Duration

	mu          sync.RWMutex
	user        *users.User
	initialized bool
}

func New(sdk SDK, exchanger Exchanger, store credentials.Store, options ...Option) *Adapter {
	a := &Adapter{
		sdk:          sdk,
		backend:      exchanger,
		providerName: DefaultProviderName,
		loginTimeout: DefaultLoginTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.validator == nil {
		a.validator = token.NewValidator()
	}
	a.tokens = provider.NewTokens(store, a.validator)
	return a
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

	fail := func(err error) {
		log.Err(err).Msg("Wallet adapter initialization failed")
		a.clearLocal()
		a.status.Fail(errors.Join(errors.ErrInitialization, err))
	}

	if err := a.sdk.Init(ctx); err != nil {
		fail(err)
		return
	}

	pair, err := a.tokens.Restore()
	if err != nil {
		fail(err)
		return
	}

	if pair != nil {
		u, err := a.restoreUser(ctx)
		if err != nil {
			fail(err)
			return
		}
		a.setUser(u)
		log.Info().Str("userID", u.ID).Msg("Restored wallet session")
		return
	}

	if a.sdk.IsConnected() {
		u, err := a.exchange(ctx)
		if err != nil {
			fail(err)
			return
		}
		log.Info().Str("userID", u.ID).Msg("Resumed provider session")
	}
}

// restoreUser validates restored tokens against the profile endpoint, refreshing once on 401.
func (a *Adapter) restoreUser(ctx context.Context) (*users.User, error) {
	profile, err := a.backend.Me(ctx, a.tokens.AccessToken())
	if errors.Is(err, errors.ErrUnauthorized) {
		if a.RefreshToken(ctx) == nil {
			return nil, errors.ErrSessionExpired
		}
		profile, err = a.backend.Me(ctx, a.tokens.AccessToken())
	}
	if err != nil {
		return nil, err
	}
	return a.buildUser(profile)
}

func (a *Adapter) Login(ctx context.Context, opts provider.LoginOptions) (*users.User, error) {
	if u := a.liveUser(); u != nil {
		return u, nil
	}

	done := a.status.Begin()
	defer done()
	a.status.ClearError()

	if opts != nil {
		if err := opts.Validate(); err != nil {
			return nil, a.status.Fail(err)
		}
	}

	if !a.sdk.IsConnected() {
		if err := a.sdk.OpenLogin(ctx, opts); err != nil {
			return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
		}
		if err := a.waitForConnection(ctx); err != nil {
			return nil, a.status.Fail(err)
		}
	}

	u, err := a.exchange(ctx)
	if err != nil {
		return nil, a.status.Fail(errors.Join(errors.ErrLogin, err))
	}
	log.Info().Str("userID", u.ID).Msg("Wallet login succeeded")
	return u.Clone(), nil
}

// waitForConnection blocks until the SDK reports a connection or the login window closes.
func (a *Adapter) waitForConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.loginTimeout)
	defer cancel()

	var events <-chan struct{}
	var tick <-chan time.Time
	if n, ok := a.sdk.(ConnectionNotifier); ok {
		events = n.Connected()
	}
	if events == nil {
		ticker := time.NewTicker(a.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if a.sdk.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			if a.sdk.IsConnected() {
				return nil
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w: no connection after %s", errors.ErrLogin, errors.ErrLoginTimeout, a.loginTimeout)
			}
			return errors.Join(errors.ErrLogin, ctx.Err())
		case _, ok := <-events:
			if !ok {
				events = nil
				ticker := time.NewTicker(a.pollInterval)
				defer ticker.Stop()
				tick = ticker.C
			}
		case <-tick:
		}
	}
}

// exchange trades a provider proof for backend tokens and installs the resulting user.
func (a *Adapter) exchange(ctx context.Context) (*users.User, error) {
	proof, err := a.sdk.ProofToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("proof token: %w", err)
	}
	ex, err := a.backend.Validate(ctx, a.providerName, proof)
	if err != nil {
		return nil, err
	}
	u, err := a.install(ex)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Adapter) install(ex *backend.Exchange) (*users.User, error) {
	if err := a.tokens.Set(ex.Pair); err != nil {
		return nil, err
	}
	u, err := a.buildUser(ex.Profile)
	if err != nil {
		_ = a.tokens.Clear()
		return nil, err
	}
	a.setUser(u)
	return u, nil
}

// Logout clears local state first so a failing SDK teardown can never leave tokens behind.
func (a *Adapter) Logout(ctx context.Context) error {
	done := a.status.Begin()
	defer done()

	a.clearLocal()
	if err := a.sdk.Disconnect(ctx); err != nil {
		log.Err(err).Msg("Provider disconnect failed")
		return a.status.Fail(errors.Join(errors.ErrLogout, err))
	}
	return nil
}

// User re-reads the profile from the backend. Any failure yields nil.
func (a *Adapter) User(ctx context.Context) *users.User {
	if !a.IsConnected() {
		return nil
	}
	access, ok := a.Token(ctx)
	if !ok {
		return nil
	}
	profile, err := a.backend.Me(ctx, access)
	if err != nil {
		log.Err(err).Msg("Failed to fetch profile")
		return nil
	}
	u, err := a.buildUser(profile)
	if err != nil {
		log.Err(err).Msg("Failed to build user")
		return nil
	}
	a.setUser(u)
	return u.Clone()
}

// CurrentUser returns the user from the last exchange or profile read without calling out.
func (a *Adapter) CurrentUser() *users.User {
	if !a.IsConnected() {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user.Clone()
}

func (a *Adapter) IsAuthenticated() bool {
	return a.IsConnected()
}

func (a *Adapter) Token(ctx context.Context) (string, bool) {
	if a.tokens.IsValid() {
		return a.tokens.AccessToken(), true
	}
	if a.tokens.RefreshToken() == "" && !a.sdk.IsConnected() {
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

// RefreshToken re-exchanges a fresh proof when the SDK is connected, otherwise uses the
// stored refresh token. A failed refresh logs the user out locally.
func (a *Adapter) RefreshToken(ctx context.Context) *token.Pair {
	done := a.status.Begin()
	defer done()

	ex, err := a.refresh(ctx)
	if err == nil {
		if err = a.tokens.Set(ex.Pair); err == nil && ex.Profile != nil && a.hasUser() {
			if u, buildErr := a.buildUser(ex.Profile); buildErr == nil {
				a.setUser(u)
			}
		}
	}
	if err != nil {
		log.Err(err).Msg("Token refresh failed")
		a.clearLocal()
		a.status.Fail(errors.Join(errors.ErrSessionExpired, err))
		return nil
	}
	return ex.Pair.Clone()
}

func (a *Adapter) refresh(ctx context.Context) (*backend.Exchange, error) {
	if a.sdk.IsConnected() {
		proof, err := a.sdk.ProofToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("proof token: %w", err)
		}
		return a.backend.Validate(ctx, a.providerName, proof)
	}
	if refresh := a.tokens.RefreshToken(); refresh != "" {
		return a.backend.Refresh(ctx, refresh)
	}
	return nil, errors.ErrNoToken
}

func (a *Adapter) IsLoading() bool { return a.status.IsLoading() }
func (a *Adapter) Error() error    { return a.status.Error() }
func (a *Adapter) ClearError()     { a.status.ClearError() }

func (a *Adapter) SignMessage(ctx context.Context, message string) (string, error) {
	w := a.wallet()
	if w == nil {
		return "", errors.ErrNotConnected
	}
	return w.SignMessage(ctx, message)
}

func (a *Adapter) SignTransaction(ctx context.Context, payload []byte) ([]byte, error) {
	w := a.wallet()
	if w == nil {
		return nil, errors.ErrNotConnected
	}
	return w.SignTransaction(ctx, payload)
}

// IsConnected reports whether a user is held and backed by an access token.
func (a *Adapter) IsConnected() bool {
	return a.hasUser() && a.tokens.HasAccessToken()
}

func (a *Adapter) CurrentAccount() *provider.Account {
	if !a.IsConnected() {
		return nil
	}
	if acct := a.sdk.Account(); acct != nil {
		c := *acct
		return &c
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &provider.Account{ID: a.user.ID, Email: a.user.Email, Phone: a.user.Phone, Name: a.user.Name()}
}

func (a *Adapter) CurrentWallet() *provider.WalletInfo {
	w := a.wallet()
	if w == nil {
		return nil
	}
	return &provider.WalletInfo{Address: w.Address(), Wallets: w.Wallets()}
}

func (a *Adapter) OpenWalletModal(ctx context.Context) error {
	if !a.IsConnected() {
		return errors.ErrNotConnected
	}
	return a.sdk.OpenWalletModal(ctx)
}

func (a *Adapter) wallet() Wallet {
	if !a.IsConnected() {
		return nil
	}
	return a.sdk.Wallet()
}

// liveUser returns the held user only when the SDK session, account and wallet are all present.
func (a *Adapter) liveUser() *users.User {
	if !a.IsConnected() || !a.sdk.IsConnected() || a.sdk.Account() == nil || a.sdk.Wallet() == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user.Clone()
}

// buildUser merges the backend profile over what the SDK knows about the account and wallet.
// The backend's ID wins.
func (a *Adapter) buildUser(profile *users.User) (*users.User, error) {
	fromSDK := &users.User{}
	if acct := a.sdk.Account(); acct != nil {
		fromSDK.ID = acct.ID
		fromSDK.Email = acct.Email
		fromSDK.Phone = acct.Phone
		fromSDK.DisplayName = acct.Name
	}
	if w := a.sdk.Wallet(); w != nil {
		fromSDK.WalletAddress = w.Address()
		fromSDK.Wallets = w.Wallets()
	}

	u := fromSDK.WithProfile(profile)
	if profile != nil && profile.ID != "" {
		u.ID = profile.ID
	}
	if u.ID == "" {
		if sub, err := token.SubjectOf(a.tokens.AccessToken()); err == nil {
			u.ID = sub
		}
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: no user identity in profile, account or token", errors.ErrLogin)
	}
	return u, nil
}

func (a *Adapter) hasUser() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user != nil
}

func (a *Adapter) setUser(u *users.User) {
	a.mu.Lock()
	a.user = u.Clone()
	a.mu.Unlock()
}

func (a *Adapter) clearLocal() {
	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()
	_ = a.tokens.Clear()
}
