// Package walletsdk adapts a third-party wallet SDK to the provider.Adapter capability.
// The SDK is opaque: only the small surface declared here is relied on.
package walletsdk

import (
	"context"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/users"
)

// Wallet is the SDK's handle on the connected wallet.
type Wallet interface {
	Address() string
	Wallets() []users.Wallet
	SignMessage(ctx context.Context, message string) (string, error)
	SignTransaction(ctx context.Context, payload []byte) ([]byte, error)
}

// SDK is the capability surface of the wallet-auth SDK.
type SDK interface {
	// Init prepares the SDK and resumes any session it kept itself.
	Init(ctx context.Context) error
	IsConnected() bool
	Account() *provider.Account
	// Wallet returns nil when no wallet is attached.
	Wallet() Wallet
	// OpenLogin starts the interactive flow and returns without waiting for it to finish.
	OpenLogin(ctx context.Context, opts provider.LoginOptions) error
	// ProofToken mints a short-lived token proving the current provider session.
	ProofToken(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	OpenWalletModal(ctx context.Context) error
}

// ConnectionNotifier is implemented by SDKs that can signal when the interactive flow
// has connected. A receive on the channel means "check IsConnected again".
type ConnectionNotifier interface {
	Connected() <-chan struct{}
}

// Exchanger is the backend side of the token lifecycle.
type Exchanger interface {
	Validate(ctx context.Context, providerName, proof string) (*backend.Exchange, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.Exchange, error)
	Me(ctx context.Context, accessToken string) (*users.User, error)
}

var _ Exchanger = (*backend.Client)(nil)
