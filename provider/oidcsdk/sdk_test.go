package oidcsdk_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/credentials/memstore"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/provider/keywallet"
	"github.com/jrsteele09/go-auth-session/provider/oidcsdk"
	"github.com/jrsteele09/go-auth-session/provider/walletsdk"
	"github.com/stretchr/testify/require"
)

const clientID = "remit-cli"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeIssuer is an OIDC provider supporting discovery, device authorization and the
// device_code and refresh_token grants.
type fakeIssuer struct {
	t     *testing.T
	srv   *httptest.Server
	key   *rsa.PrivateKey
	clock *clock

	mu         sync.Mutex
	deviceForm url.Values
	refreshes  int
}

func newIssuer(t *testing.T, c *clock) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fi := &fakeIssuer{t: t, key: key, clock: c}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                fi.srv.URL,
			"authorization_endpoint":                fi.srv.URL + "/authorize",
			"token_endpoint":                        fi.srv.URL + "/token",
			"device_authorization_endpoint":         fi.srv.URL + "/device",
			"jwks_uri":                              fi.srv.URL + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fi.mu.Lock()
		fi.deviceForm = r.PostForm
		fi.mu.Unlock()
		writeJSON(w, map[string]any{
			"device_code":      "dev-1",
			"user_code":        "ABCD-EFGH",
			"verification_uri": fi.srv.URL + "/activate",
			"expires_in":       60,
			"interval":         1,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			fi.mu.Lock()
			fi.refreshes++
			fi.mu.Unlock()
			writeJSON(w, map[string]any{
				"access_token":  "at-2",
				"token_type":    "Bearer",
				"refresh_token": "rt-2",
				"expires_in":    3600,
				"id_token":      fi.idToken(key, 10*time.Minute),
			})
		default:
			writeJSON(w, map[string]any{
				"access_token":  "at-1",
				"token_type":    "Bearer",
				"refresh_token": "rt-1",
				"expires_in":    3600,
				"id_token":      fi.idToken(key, time.Minute),
			})
		}
	})

	fi.srv = httptest.NewServer(mux)
	t.Cleanup(fi.srv.Close)
	return fi
}

func (fi *fakeIssuer) idToken(key *rsa.PrivateKey, ttl time.Duration) string {
	now := fi.clock.Now()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   fi.srv.URL,
		"aud":   clientID,
		"sub":   "oidc-user-1",
		"email": "a@b.com",
		"name":  "Ada Lovelace",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}).SignedString(key)
	require.NoError(fi.t, err)
	return raw
}

func (fi *fakeIssuer) newSDK(prompt oidcsdk.Prompt) *oidcsdk.SDK {
	opts := []oidcsdk.Option{
		oidcsdk.WithKeySet(&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&fi.key.PublicKey}}),
		oidcsdk.WithNowFunc(fi.clock.Now),
	}
	if prompt != nil {
		opts = append(opts, oidcsdk.WithPrompt(prompt))
	}
	return oidcsdk.New(oidcsdk.Config{Issuer: fi.srv.URL, ClientID: clientID, Network: "sepolia"}, opts...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func waitConnected(t *testing.T, sdk *oidcsdk.SDK) {
	t.Helper()
	select {
	case <-sdk.Connected():
	case <-time.After(10 * time.Second):
		t.Fatal("device login never connected")
	}
	require.True(t, sdk.IsConnected())
}

func TestDeviceLogin(t *testing.T) {
	c := &clock{now: time.Now()}
	fi := newIssuer(t, c)

	var gotURI, gotCode string
	sdk := fi.newSDK(func(uri, code string) {
		gotURI, gotCode = uri, code
	})
	ctx := context.Background()
	require.NoError(t, sdk.Init(ctx))
	require.NoError(t, sdk.Init(ctx))

	require.NoError(t, sdk.OpenLogin(ctx, provider.EmailLogin{Email: "a@b.com"}))
	require.Equal(t, "ABCD-EFGH", gotCode)
	require.Equal(t, fi.srv.URL+"/activate", gotURI)
	fi.mu.Lock()
	require.Equal(t, "a@b.com", fi.deviceForm.Get("login_hint"))
	require.Equal(t, clientID, fi.deviceForm.Get("client_id"))
	fi.mu.Unlock()

	waitConnected(t, sdk)

	acct := sdk.Account()
	require.Equal(t, "oidc-user-1", acct.ID)
	require.Equal(t, "a@b.com", acct.Email)
	require.Equal(t, "Ada Lovelace", acct.Name)

	conn := sdk.Connection()
	require.Equal(t, "rt-1", conn.RefreshToken)

	w := sdk.Wallet()
	require.NotNil(t, w)
	require.Len(t, w.Wallets(), 1)
	sig, err := w.SignMessage(ctx, "hello")
	require.NoError(t, err)
	signer, err := keywallet.RecoverMessageSigner("hello", sig)
	require.NoError(t, err)
	require.Equal(t, w.Address(), signer)
	require.NoError(t, sdk.OpenWalletModal(ctx))

	proof, err := sdk.ProofToken(ctx)
	require.NoError(t, err)
	require.Equal(t, conn.IDToken, proof)

	require.NoError(t, sdk.Disconnect(ctx))
	require.False(t, sdk.IsConnected())
	require.Nil(t, sdk.Wallet())
	_, err = sdk.ProofToken(ctx)
	require.ErrorIs(t, err, autherrors.ErrNotConnected)
	require.ErrorIs(t, sdk.OpenWalletModal(ctx), autherrors.ErrNotConnected)
}

func TestProofTokenRefreshesExpiredIDToken(t *testing.T) {
	c := &clock{now: time.Now()}
	fi := newIssuer(t, c)
	sdk := fi.newSDK(func(string, string) {})
	ctx := context.Background()
	require.NoError(t, sdk.Init(ctx))
	require.NoError(t, sdk.OpenLogin(ctx, nil))
	waitConnected(t, sdk)

	first, err := sdk.ProofToken(ctx)
	require.NoError(t, err)

	c.Advance(2 * time.Minute)
	second, err := sdk.ProofToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, "rt-2", sdk.Connection().RefreshToken)

	fi.mu.Lock()
	require.Equal(t, 1, fi.refreshes)
	fi.mu.Unlock()
}

func TestCustomTokenLogin(t *testing.T) {
	c := &clock{now: time.Now()}
	fi := newIssuer(t, c)
	sdk := fi.newSDK(nil)
	ctx := context.Background()

	require.ErrorIs(t, sdk.OpenLogin(ctx, nil), autherrors.ErrInitialization)
	require.NoError(t, sdk.Init(ctx))

	require.NoError(t, sdk.OpenLogin(ctx, provider.CustomTokenLogin{Token: fi.idToken(fi.key, time.Minute)}))
	require.True(t, sdk.IsConnected())

	// Without a refresh token an expired proof cannot be renewed.
	c.Advance(5 * time.Minute)
	_, err := sdk.ProofToken(ctx)
	require.ErrorIs(t, err, autherrors.ErrSessionExpired)
}

func TestCustomTokenLogin_RejectsForeignSignature(t *testing.T) {
	c := &clock{now: time.Now()}
	fi := newIssuer(t, c)
	sdk := fi.newSDK(nil)
	ctx := context.Background()
	require.NoError(t, sdk.Init(ctx))

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	err = sdk.OpenLogin(ctx, provider.CustomTokenLogin{Token: fi.idToken(other, time.Minute)})
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	require.False(t, sdk.IsConnected())
}

func TestWalletAdapterOverOIDC(t *testing.T) {
	c := &clock{now: time.Now()}
	fi := newIssuer(t, c)
	sdk := fi.newSDK(nil)

	var proof string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		proof = body["token"]
		writeJSON(w, map[string]any{"access_token": "api-1", "refresh_token": "api-r", "expires_in": 600})
	}))
	t.Cleanup(api.Close)

	store := memstore.New()
	a := walletsdk.New(sdk, backend.NewClient(api.URL, time.Second), store,
		walletsdk.WithLoginTimeout(5*time.Second),
	)
	ctx := context.Background()
	a.Initialize(ctx)
	require.NoError(t, a.Error())

	idToken := fi.idToken(fi.key, time.Minute)
	u, err := a.Login(ctx, provider.CustomTokenLogin{Token: idToken})
	require.NoError(t, err)
	require.Equal(t, idToken, proof)
	require.Equal(t, "oidc-user-1", u.ID)
	require.Equal(t, "a@b.com", u.Email)
	require.Equal(t, sdk.Wallet().Address(), u.WalletAddress)

	access, _ := store.AccessToken()
	require.Equal(t, "api-1", access)
}
