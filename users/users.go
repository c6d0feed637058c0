package users

import (
	"strings"
	"time"
)

// Status is the account standing reported by the backend.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// WalletKind describes how a wallet's key is held.
type WalletKind string

const (
	WalletEmbedded WalletKind = "embedded" // Key held by the identity provider on the user's behalf
	WalletExternal WalletKind = "external" // User brought their own wallet
)

// Wallet is a descriptor for one wallet linked to the account.
type Wallet struct {
	PublicKey string     `json:"publicKey"`
	Kind      WalletKind `json:"walletType,omitempty"`
	Curve     string     `json:"curve,omitempty"`
}

// User is an authenticated identity. Values are built fresh on every login, refresh or
// lookup and are never mutated in place once handed out.
type User struct {
	ID                string     `json:"id"`                          // Opaque identity, always present
	Email             string     `json:"email,omitempty"`             // Contact email
	Phone             string     `json:"phone,omitempty"`             // Contact phone (E.164)
	FirstName         string     `json:"firstName,omitempty"`         // First name of the user
	LastName          string     `json:"lastName,omitempty"`          // Last name of the user
	DisplayName       string     `json:"displayName,omitempty"`       // Preferred display name
	ProfileImageURL   string     `json:"profileImage,omitempty"`      // Avatar URL
	PreferredLanguage string     `json:"preferredLanguage,omitempty"` // BCP 47 language tag
	Status            Status     `json:"status,omitempty"`            // active or suspended
	CreatedAt         *time.Time `json:"createdAt,omitempty"`         // Account creation
	LastLogin         *time.Time `json:"lastLoginAt,omitempty"`       // Last successful login

	WalletAddress string   `json:"walletAddress,omitempty"` // Primary wallet address
	Wallets       []Wallet `json:"wallets,omitempty"`       // All linked wallets
}

// HasContact reports whether the user can be reached. Accounts without contact details
// are allowed, this is advisory only.
func (u *User) HasContact() bool {
	return strings.TrimSpace(u.Email) != "" || strings.TrimSpace(u.Phone) != ""
}

// IsSuspended returns true if the backend has suspended the account
func (u *User) IsSuspended() bool {
	return u.Status == StatusSuspended
}

// Name returns the best available human readable name.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

// Clone returns a deep copy so callers can derive a new value without touching the original.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		c.CreatedAt = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	if u.Wallets != nil {
		c.Wallets = append([]Wallet(nil), u.Wallets...)
	}
	return &c
}

// WithProfile returns a new user with every non-empty field of profile layered on top.
// The identity of the receiver wins unless it is empty.
func (u *User) WithProfile(profile *User) *User {
	c := u.Clone()
	if c == nil {
		c = &User{}
	}
	if profile == nil {
		return c
	}
	if c.ID == "" {
		c.ID = profile.ID
	}
	setIfEmpty := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	setIfEmpty(&c.Email, profile.Email)
	setIfEmpty(&c.Phone, profile.Phone)
	setIfEmpty(&c.FirstName, profile.FirstName)
	setIfEmpty(&c.LastName, profile.LastName)
	setIfEmpty(&c.DisplayName, profile.DisplayName)
	setIfEmpty(&c.ProfileImageURL, profile.ProfileImageURL)
	setIfEmpty(&c.PreferredLanguage, profile.PreferredLanguage)
	setIfEmpty(&c.WalletAddress, profile.WalletAddress)
	if profile.Status != "" {
		c.Status = profile.Status
	}
	if profile.CreatedAt != nil {
		t := *profile.CreatedAt
		c.CreatedAt = &t
	}
	if profile.LastLogin != nil {
		t := *profile.LastLogin
		c.LastLogin = &t
	}
	if len(profile.Wallets) > 0 {
		c.Wallets = mergeWallets(c.Wallets, profile.Wallets)
	}
	return c
}

func mergeWallets(existing, incoming []Wallet) []Wallet {
	seen := make(map[string]struct{}, len(existing))
	out := append([]Wallet(nil), existing...)
	for _, w := range existing {
		seen[strings.ToLower(w.PublicKey)] = struct{}{}
	}
	for _, w := range incoming {
		if _, ok := seen[strings.ToLower(w.PublicKey)]; ok {
			continue
		}
		seen[strings.ToLower(w.PublicKey)] = struct{}{}
		out = append(out, w)
	}
	return out
}
