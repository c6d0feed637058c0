// Package provider defines the identity provider capability every adapter implements,
// plus the token and status bookkeeping the adapters share.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
)

// Kind selects which adapter variant is active. It is chosen once at startup.
type Kind int

const (
	KindReal Kind = iota + 1
	KindMock
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindMock:
		return "mock"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration string onto a Kind, rejecting anything unknown.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real":
		return KindReal, nil
	case "mock":
		return KindMock, nil
	default:
		return 0, fmt.Errorf("unknown adapter kind %q: must be 'real' or 'mock'", s)
	}
}

// Account is the provider-side identity of the connected user.
type Account struct {
	ID    string
	Email string
	Phone string
	Name  string
}

// WalletInfo is a snapshot of the wallet attached to the session.
type WalletInfo struct {
	Address string
	Wallets []users.Wallet
}

// Adapter is the identity provider capability. Introspection methods (IsLoading, Error,
// IsConnected, CurrentUser, CurrentAccount, CurrentWallet, IsTokenValid, IsAuthenticated)
// never block on I/O and never fail.
type Adapter interface {
	// Initialize restores any previous session. Failures are logged and recorded in Error;
	// the adapter is then simply logged out.
	Initialize(ctx context.Context)

	// Login returns the current user straight away if already connected, otherwise drives the
	// interactive flow, exchanges the provider proof for a backend token pair and builds the user.
	Login(ctx context.Context, opts LoginOptions) (*users.User, error)

	// Logout clears local credentials unconditionally, then tears down the provider session.
	Logout(ctx context.Context) error

	// User returns the current user, or nil on any failure.
	User(ctx context.Context) *users.User
	// CurrentUser is the user last built by the adapter, or nil when not connected.
	CurrentUser() *users.User
	IsAuthenticated() bool

	// Token returns a valid access token, attempting at most one silent refresh. Without a
	// refresh token or a provider connection there is nothing to refresh and no error is recorded.
	Token(ctx context.Context) (string, bool)
	IsTokenValid() bool
	// RefreshToken forces a new exchange. It returns nil on failure.
	RefreshToken(ctx context.Context) *token.Pair

	IsLoading() bool
	Error() error
	ClearError()

	SignMessage(ctx context.Context, message string) (string, error)
	SignTransaction(ctx context.Context, payload []byte) ([]byte, error)

	IsConnected() bool
	CurrentAccount() *Account
	CurrentWallet() *WalletInfo
	OpenWalletModal(ctx context.Context) error
}
