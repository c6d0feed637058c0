// Package app is the composition root. It picks the adapter kind once and wires the
// credential store, backend client, adapter, session manager and request gateway together.
package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/credentials/boltstore"
	"github.com/jrsteele09/go-auth-session/credentials/memstore"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/provider/mock"
	"github.com/jrsteele09/go-auth-session/provider/oidcsdk"
	"github.com/jrsteele09/go-auth-session/provider/walletsdk"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
	"golang.org/x/time/rate"
)

type options struct {
	onUnauthorized func(ctx context.Context)
	registerer     prometheus.Registerer
	prompt         oidcsdk.Prompt
	store          credentials.Store
}

type Option func(*options)

// WithOnUnauthorized runs fn after an unrecoverable 401 has ended the session, typically to
// send the user back to the login entry point.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(o *options) {
		o.onUnauthorized = fn
	}
}

// WithRegisterer registers the gateway metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPrompt sets how the real adapter shows the device login code.
func WithPrompt(p oidcsdk.Prompt) Option {
	return func(o *options) {
		o.prompt = p
	}
}

// WithStore replaces the configured credential store.
func WithStore(s credentials.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

type App struct {
	Kind    provider.Kind
	Store   credentials.Store
	Backend *backend.Client
	Adapter provider.Adapter
	Session *session.Manager
	Gateway *gateway.Gateway

	closer io.Closer
}

// New builds the application and initializes the session, restoring any stored credentials.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	a := &App{Store: o.store}
	if a.Store == nil {
		store, closer, err := openStore(cfg)
		if err != nil {
			return nil, errors.Join(errors.ErrInitialization, err)
		}
		a.Store, a.closer = store, closer
	}

	a.Backend = backend.NewClient(cfg.GetAPIBaseURL(), cfg.GetRequestTimeout())

	kind, err := provider.ParseKind(cfg.GetAdapter())
	if err != nil {
		_ = a.Close()
		return nil, errors.Join(errors.ErrInitialization, err)
	}
	a.Kind = kind
	a.Adapter = newAdapter(kind, cfg, a.Backend, a.Store, o)
	log.Info().Str("adapter", kind.String()).Msg("Identity provider selected")

	a.Session = session.New(a.Adapter)
	a.Gateway = gateway.New(a.Adapter, gatewayOptions(cfg, o, a.Session)...)

	a.Session.Initialize(ctx)
	return a, nil
}

func openStore(cfg config.StoreConfig) (credentials.Store, io.Closer, error) {
	path := cfg.GetCredentialsPath()
	if path == "" {
		return memstore.New(), nil, nil
	}
	store, err := boltstore.NewFromFile(path, &bbolt.Options{Timeout: time.Second}, boltstore.WithSealingKey(cfg.GetCredentialsKey()))
	if err != nil {
		return nil, nil, fmt.Errorf("opening credential store %s: %w", path, err)
	}
	return store, store, nil
}

func newAdapter(kind provider.Kind, cfg config.Config, client *backend.Client, store credentials.Store, o *options) provider.Adapter {
	if kind == provider.KindMock {
		return mock.New(store)
	}

	clientID := cfg.GetOIDCClientID()
	if clientID == "" {
		clientID = cfg.GetProviderAPIKey()
	}
	var sdkOpts []oidcsdk.Option
	if o.prompt != nil {
		sdkOpts = append(sdkOpts, oidcsdk.WithPrompt(o.prompt))
	}
	sdk := oidcsdk.New(oidcsdk.Config{
		Issuer:   cfg.GetOIDCIssuer(),
		ClientID: clientID,
		AppName:  cfg.GetProviderAppName(),
		Network:  cfg.GetProviderNetwork(),
		Theme:    cfg.GetProviderTheme(),
	}, sdkOpts...)

	return walletsdk.New(sdk, client, store,
		walletsdk.WithProviderName(cfg.GetProviderName()),
		walletsdk.WithLoginTimeout(cfg.GetLoginTimeout()),
		walletsdk.WithPollInterval(cfg.GetLoginPollInterval()),
	)
}

func gatewayOptions(cfg config.BackendConfig, o *options, mgr *session.Manager) []gateway.Option {
	gopts := []gateway.Option{
		gateway.WithBaseURL(cfg.GetAPIBaseURL()),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		gateway.WithMetrics(gateway.NewMetrics(o.registerer)),
		gateway.WithOnUnauthorized(func(ctx context.Context) {
			// An unrecoverable 401 ends the session.
			if err := mgr.Logout(ctx); err != nil {
				log.Err(err).Msg("Logout after unauthorized response")
			}
			if o.onUnauthorized != nil {
				o.onUnauthorized(ctx)
			}
		}),
	}
	if rps := cfg.GetRequestsPerSecond(); rps > 0 {
		burst := int(math.Max(1, math.Ceil(rps)))
		gopts = append(gopts, gateway.WithRateLimiter(rate.NewLimiter(rate.Limit(rps), burst)))
	}
	return gopts
}

// Close releases the credential store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
