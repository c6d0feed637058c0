package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/go-auth-session/internal/config"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider/keywallet"
	"github.com/jrsteele09/go-auth-session/provider/mock"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.Config
	baseURL string
	path    string
}

func (c testConfig) GetAdapter() string            { return "mock" }
func (c testConfig) GetAPIBaseURL() string         { return c.baseURL }
func (c testConfig) GetCredentialsPath() string    { return c.path }
func (c testConfig) GetCredentialsKey() []byte     { return []byte("0123456789abcdef0123456789abcdef") }
func (c testConfig) GetRequestsPerSecond() float64 { return 0 }

func newTestConfig(t *testing.T, baseURL string) testConfig {
	t.Helper()
	return testConfig{
		Config:  config.New(),
		baseURL: baseURL,
		path:    filepath.Join(t.TempDir(), "remitctl.db"),
	}
}

func execute(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(cfg)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost")

	_, err := execute(t, cfg, "whoami")
	require.ErrorIs(t, err, autherrors.ErrUnauthorized)

	out, err := execute(t, cfg, "login", "-q", "--method", "email", "--value", "ada@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as ada (")
	require.Contains(t, out, mock.WalletAddress())

	out, err = execute(t, cfg, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Email:   ada@example.com")

	out, err = execute(t, cfg, "whoami", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "ada@example.com"`)

	out, err = execute(t, cfg, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	_, err = execute(t, cfg, "whoami")
	require.ErrorIs(t, err, autherrors.ErrUnauthorized)
}

func TestLogin_RejectsBadOptions(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost")

	_, err := execute(t, cfg, "login", "--method", "carrier-pigeon")
	require.ErrorIs(t, err, autherrors.ErrUnknownLoginMethod)

	_, err = execute(t, cfg, "login", "--method", "phone", "--value", "12")
	require.ErrorIs(t, err, autherrors.ErrInvalidLoginOptions)
}

func TestToken(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost")

	_, err := execute(t, cfg, "token")
	require.ErrorIs(t, err, autherrors.ErrNoToken)

	_, err = execute(t, cfg, "login", "-q")
	require.NoError(t, err)

	out, err := execute(t, cfg, "token")
	require.NoError(t, err)
	first := strings.TrimSpace(out)
	require.NotEmpty(t, first)

	out, err = execute(t, cfg, "token", "--refresh")
	require.NoError(t, err)
	require.NotEqual(t, first, strings.TrimSpace(out))
}

func TestGet(t *testing.T) {
	var mu sync.Mutex
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance":"12.50","currency":"USD"}`))
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)
	_, err := execute(t, cfg, "login", "-q")
	require.NoError(t, err)

	out, err := execute(t, cfg, "get", "wallet/balance")
	require.NoError(t, err)
	require.Contains(t, out, `"balance": "12.50"`)
	mu.Lock()
	defer mu.Unlock()
	require.True(t, strings.HasPrefix(auth, "Bearer "))
}

func TestSign(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost")

	_, err := execute(t, cfg, "sign", "--message", "hello")
	require.ErrorIs(t, err, autherrors.ErrNotConnected)

	_, err = execute(t, cfg, "login", "-q")
	require.NoError(t, err)

	out, err := execute(t, cfg, "sign", "--message", "hello")
	require.NoError(t, err)
	signer, err := keywallet.RecoverMessageSigner("hello", strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, mock.WalletAddress(), signer)

	_, err = execute(t, cfg, "sign")
	require.Error(t, err)

	out, err = execute(t, cfg, "sign", "--tx", "0xdeadbeef")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "0x"))
}
