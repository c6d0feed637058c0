// Package apierror maps backend HTTP failures onto the small set of categories callers
// present to users.
package apierror

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/errors"
)

type Category string

const (
	CategoryUnauthorized Category = "unauthorized"
	CategoryForbidden    Category = "forbidden"
	CategoryNotFound     Category = "not-found"
	CategoryValidation   Category = "validation"
	CategoryRateLimited  Category = "rate-limited"
	CategoryServer       Category = "server-error"
	CategoryUnknown      Category = "unknown"
)

// maxBodyBytes bounds how much of an error body is read for the message.
const maxBodyBytes = 4 << 10

// FromStatus categorises an HTTP status code.
func FromStatus(code int) Category {
	switch {
	case code == http.StatusUnauthorized:
		return CategoryUnauthorized
	case code == http.StatusForbidden:
		return CategoryForbidden
	case code == http.StatusNotFound:
		return CategoryNotFound
	case code == http.StatusBadRequest, code == http.StatusConflict, code == http.StatusUnprocessableEntity:
		return CategoryValidation
	case code == http.StatusTooManyRequests:
		return CategoryRateLimited
	case code >= 500:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// Sentinel is the internal/errors value the category unwraps to.
func (c Category) Sentinel() error {
	switch c {
	case CategoryUnauthorized:
		return errors.ErrUnauthorized
	case CategoryForbidden:
		return errors.ErrForbidden
	case CategoryNotFound:
		return errors.ErrNotFound
	case CategoryValidation:
		return errors.ErrValidation
	case CategoryRateLimited:
		return errors.ErrRateLimited
	case CategoryServer:
		return errors.ErrServer
	default:
		return errors.ErrUnknown
	}
}

// Error is a non-2xx backend response.
type Error struct {
	Category   Category
	StatusCode int
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Category, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Category, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Category.Sentinel()
}

func New(statusCode int, message string) *Error {
	return &Error{Category: FromStatus(statusCode), StatusCode: statusCode, Message: message}
}

type errorBody struct {
	Message     string `json:"message"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// FromResponse builds an Error from resp and closes its body. The message is taken from
// a JSON body when one is present, otherwise from the raw text.
func FromResponse(resp *http.Response) *Error {
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	e := New(resp.StatusCode, strings.TrimSpace(string(raw)))
	e.RequestID = resp.Header.Get("X-Request-ID")

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Description != "":
			e.Message = body.Description
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		}
	}
	return e
}
