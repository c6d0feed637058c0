package boltstore_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-session/credentials/boltstore"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newTestPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "credentials.db")
}

func readTokens(t *testing.T, s *boltstore.Store) (string, string) {
	t.Helper()
	access, err := s.AccessToken()
	require.NoError(t, err)
	refresh, err := s.RefreshToken()
	require.NoError(t, err)
	return access, refresh
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := newTestPath(t)

	s, err := boltstore.NewFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetTokens("access-1", "refresh-1"))
	require.NoError(t, s.Close())

	s, err = boltstore.NewFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	access, refresh := readTokens(t, s)
	require.Equal(t, "access-1", access)
	require.Equal(t, "refresh-1", refresh)

	require.NoError(t, s.Clear())
	access, refresh = readTokens(t, s)
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestStore_EmptyRefreshTokenRemovesEntry(t *testing.T) {
	s, err := boltstore.NewFromFile(newTestPath(t), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetTokens("a", "r"))
	require.NoError(t, s.SetTokens("b", ""))

	access, refresh := readTokens(t, s)
	require.Equal(t, "b", access)
	require.Empty(t, refresh)
}

func TestStore_Sealed(t *testing.T) {
	path := newTestPath(t)
	key := bytes.Repeat([]byte{7}, 32)

	s, err := boltstore.NewFromFile(path, nil, boltstore.WithSealingKey(key))
	require.NoError(t, err)
	require.NoError(t, s.SetTokens("secret-access", "secret-refresh"))

	access, refresh := readTokens(t, s)
	require.Equal(t, "secret-access", access)
	require.Equal(t, "secret-refresh", refresh)
	require.NoError(t, s.Close())

	t.Run("ciphertext on disk", func(t *testing.T) {
		db, err := bbolt.Open(path, 0600, nil)
		require.NoError(t, err)
		defer db.Close()
		err = db.View(func(tx *bbolt.Tx) error {
			raw := tx.Bucket([]byte("credentials")).Get([]byte("access_token"))
			require.NotContains(t, string(raw), "secret-access")
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("wrong key reads as absent", func(t *testing.T) {
		other, err := boltstore.NewFromFile(path, nil, boltstore.WithSealingKey(bytes.Repeat([]byte{9}, 32)))
		require.NoError(t, err)
		defer other.Close()
		access, refresh := readTokens(t, other)
		require.Empty(t, access)
		require.Empty(t, refresh)
	})
}

func TestStore_RejectsShortKey(t *testing.T) {
	_, err := boltstore.NewFromFile(newTestPath(t), nil, boltstore.WithSealingKey([]byte("short")))
	require.Error(t, err)
}
