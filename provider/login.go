package provider

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// LoginMethod discriminates the LoginOptions variants.
type LoginMethod string

const (
	MethodGoogle LoginMethod = "google"
	MethodEmail  LoginMethod = "email"
	MethodPhone  LoginMethod = "phone"
	MethodCustom LoginMethod = "custom"
)

// LoginOptions is a closed union; only the types in this package implement it.
// A nil LoginOptions lets the provider offer its own method picker.
type LoginOptions interface {
	Method() LoginMethod
	// Identifier is the value the user logged in with, or "" when the provider supplies it.
	Identifier() string
	Validate() error
	isLoginOptions()
}

type GoogleLogin struct{}

type EmailLogin struct {
	Email string
}

type PhoneLogin struct {
	Phone string
}

// CustomTokenLogin authenticates with a JWT minted by the application's own backend.
type CustomTokenLogin struct {
	Token string
}

func (GoogleLogin) Method() LoginMethod      { return MethodGoogle }
func (EmailLogin) Method() LoginMethod       { return MethodEmail }
func (PhoneLogin) Method() LoginMethod       { return MethodPhone }
func (CustomTokenLogin) Method() LoginMethod { return MethodCustom }

func (GoogleLogin) Identifier() string        { return "" }
func (o EmailLogin) Identifier() string       { return strings.ToLower(strings.TrimSpace(o.Email)) }
func (o PhoneLogin) Identifier() string       { return normalisePhone(o.Phone) }
func (o CustomTokenLogin) Identifier() string { return o.Token }

func (GoogleLogin) isLoginOptions()      {}
func (EmailLogin) isLoginOptions()       {}
func (PhoneLogin) isLoginOptions()       {}
func (CustomTokenLogin) isLoginOptions() {}

func (GoogleLogin) Validate() error { return nil }

func (o EmailLogin) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(o.Email)); err != nil {
		return fmt.Errorf("%w: email %q: %v", errors.ErrInvalidLoginOptions, o.Email, err)
	}
	return nil
}

func (o PhoneLogin) Validate() error {
	p := normalisePhone(o.Phone)
	if len(p) < 8 || !strings.HasPrefix(p, "+") {
		return fmt.Errorf("%w: phone must be in international format", errors.ErrInvalidLoginOptions)
	}
	return nil
}

func (o CustomTokenLogin) Validate() error {
	if strings.TrimSpace(o.Token) == "" {
		return fmt.Errorf("%w: custom login requires a token", errors.ErrInvalidLoginOptions)
	}
	return nil
}

// ParseLoginOptions builds options from a method name and its single value (email,
// phone number or token). Unknown methods are rejected.
func ParseLoginOptions(method, value string) (LoginOptions, error) {
	var opts LoginOptions
	switch LoginMethod(strings.ToLower(strings.TrimSpace(method))) {
	case MethodGoogle:
		opts = GoogleLogin{}
	case MethodEmail:
		opts = EmailLogin{Email: value}
	case MethodPhone:
		opts = PhoneLogin{Phone: value}
	case MethodCustom:
		opts = CustomTokenLogin{Token: value}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownLoginMethod, method)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func normalisePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
