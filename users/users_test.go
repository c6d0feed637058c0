package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/require"
)

func TestUser_WithProfileReturnsNewValue(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	base := &users.User{
		ID:            "user-1",
		Email:         "a@b.com",
		WalletAddress: "0xabc",
		Wallets:       []users.Wallet{{PublicKey: "0xABC", Kind: users.WalletEmbedded, Curve: "secp256k1"}},
	}

	merged := base.WithProfile(&users.User{
		ID:        "ignored",
		FirstName: "Ada",
		Status:    users.StatusActive,
		CreatedAt: utils.Ptr(created),
		Wallets: []users.Wallet{
			{PublicKey: "0xabc", Kind: users.WalletEmbedded},
			{PublicKey: "0xdef", Kind: users.WalletExternal},
		},
	})

	require.Equal(t, "user-1", merged.ID)
	require.Equal(t, "Ada", merged.FirstName)
	require.Equal(t, "a@b.com", merged.Email)
	require.Equal(t, created, utils.Value(merged.CreatedAt))
	require.Len(t, merged.Wallets, 2, "wallets are de-duplicated case-insensitively")

	require.Empty(t, base.FirstName, "original must not change")
	require.Len(t, base.Wallets, 1)
}

func TestUser_Name(t *testing.T) {
	t.Run("display name wins", func(t *testing.T) {
		u := &users.User{DisplayName: "ada", FirstName: "Ada", LastName: "Lovelace"}
		require.Equal(t, "ada", u.Name())
	})

	t.Run("full name", func(t *testing.T) {
		u := &users.User{FirstName: "Ada", LastName: "Lovelace"}
		require.Equal(t, "Ada Lovelace", u.Name())
	})

	t.Run("falls back to contact", func(t *testing.T) {
		u := &users.User{Phone: "+61400000000"}
		require.Equal(t, "+61400000000", u.Name())
		require.True(t, u.HasContact())
	})
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := &users.User{ID: "1", LastLogin: utils.Ptr(time.Now()), Wallets: []users.Wallet{{PublicKey: "k"}}}
	c := u.Clone()
	c.Wallets[0].PublicKey = "changed"
	*c.LastLogin = time.Time{}

	require.Equal(t, "k", u.Wallets[0].PublicKey)
	require.False(t, u.LastLogin.IsZero())
	require.Nil(t, (*users.User)(nil).Clone())
}
