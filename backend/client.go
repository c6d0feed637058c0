// Package backend talks to the remittance API's auth endpoints: exchanging a provider proof
// for a token pair, refreshing that pair and fetching the caller's profile.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/gateway/apierror"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/pkg/errors"
)

const (
	refreshPath = "/auth/refresh"
	mePath      = "/auth/me"
)

// Exchange is the result of a successful token exchange or refresh.
type Exchange struct {
	Pair    *token.Pair
	Profile *users.User // May be nil when the backend does not embed the user
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    string      `json:"expires_at"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *users.User `json:"user"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	now func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Validate exchanges a provider-issued proof token for a backend token pair.
func (c *Client) Validate(ctx context.Context, providerName, proof string) (*Exchange, error) {
	path := "/auth/" + url.PathEscape(providerName) + "/validate"
	ex, err := c.exchange(ctx, path, map[string]string{"token": proof})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] token exchange")
	}
	return ex, nil
}

// Refresh mints a new pair. The old refresh token is kept if the response omits one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Exchange, error) {
	ex, err := c.exchange(ctx, refreshPath, map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh] token refresh")
	}
	if ex.Pair.RefreshToken == "" {
		ex.Pair.RefreshToken = refreshToken
	}
	return ex, nil
}

// Me fetches the profile of the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+mePath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Me] failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Me] profile request")
	}

	var wrapped struct {
		User *users.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var u users.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "[Client.Me] failed to decode profile")
	}
	if u.ID == "" {
		return nil, errors.New("[Client.Me] profile has no id")
	}
	return &u, nil
}

func (c *Client) exchange(ctx context.Context, path string, payload any) (*Exchange, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode token response")
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", autherrors.ErrInvalidToken)
	}

	pair := &token.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	switch {
	case resp.ExpiresAt != "":
		exp, err := time.Parse(time.RFC3339, resp.ExpiresAt)
		if err != nil {
			return nil, errors.Wrap(err, "invalid expires_at")
		}
		pair.ExpiresAt = &exp
	case resp.ExpiresIn > 0:
		pair.ExpiresAt = utils.Ptr(c.now().Add(time.Duration(resp.ExpiresIn) * time.Second))
	}
	return &Exchange{Pair: pair, Profile: resp.User}, nil
}

// do sends req and returns the body of a 2xx response. Anything else becomes an *apierror.Error.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(resp)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	return raw, nil
}
