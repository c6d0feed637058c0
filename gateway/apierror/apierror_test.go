package apierror_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/gateway/apierror"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code     int
		category apierror.Category
		sentinel error
	}{
		{http.StatusUnauthorized, apierror.CategoryUnauthorized, errors.ErrUnauthorized},
		{http.StatusForbidden, apierror.CategoryForbidden, errors.ErrForbidden},
		{http.StatusNotFound, apierror.CategoryNotFound, errors.ErrNotFound},
		{http.StatusBadRequest, apierror.CategoryValidation, errors.ErrValidation},
		{http.StatusUnprocessableEntity, apierror.CategoryValidation, errors.ErrValidation},
		{http.StatusTooManyRequests, apierror.CategoryRateLimited, errors.ErrRateLimited},
		{http.StatusBadGateway, apierror.CategoryServer, errors.ErrServer},
		{http.StatusTeapot, apierror.CategoryUnknown, errors.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			require.Equal(t, tt.category, apierror.FromStatus(tt.code))
			require.ErrorIs(t, apierror.New(tt.code, ""), tt.sentinel)
		})
	}
}

func response(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"X-Request-Id": []string{"req-1"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFromResponse(t *testing.T) {
	e := apierror.FromResponse(response(http.StatusBadRequest, `{"message":"amount must be positive"}`))
	require.Equal(t, apierror.CategoryValidation, e.Category)
	require.Equal(t, "amount must be positive", e.Message)
	require.Equal(t, "req-1", e.RequestID)

	e = apierror.FromResponse(response(http.StatusUnauthorized, `{"error":"invalid_token","error_description":"expired"}`))
	require.Equal(t, "expired", e.Message)

	e = apierror.FromResponse(response(http.StatusInternalServerError, "upstream exploded\n"))
	require.Equal(t, "upstream exploded", e.Message)
	require.Contains(t, e.Error(), "server-error (status 500)")
}
