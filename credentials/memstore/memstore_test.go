package memstore_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-session/credentials/memstore"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	s := memstore.New()

	access, err := s.AccessToken()
	require.NoError(t, err)
	require.Empty(t, access)

	require.NoError(t, s.SetTokens("a1", "r1"))
	access, _ = s.AccessToken()
	refresh, _ := s.RefreshToken()
	require.Equal(t, "a1", access)
	require.Equal(t, "r1", refresh)

	require.NoError(t, s.SetTokens("a2", ""))
	refresh, _ = s.RefreshToken()
	require.Empty(t, refresh, "an absent refresh token replaces the old one")
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Clear())
	require.Zero(t, s.Len())
}
