package keywallet_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/provider/keywallet"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/require"
)

func TestFromSeedIsDeterministic(t *testing.T) {
	a, err := keywallet.FromSeed([]byte("seed"))
	require.NoError(t, err)
	b, err := keywallet.FromSeed([]byte("seed"))
	require.NoError(t, err)
	c, err := keywallet.FromSeed([]byte("other"))
	require.NoError(t, err)

	require.Equal(t, a.Address(), b.Address())
	require.NotEqual(t, a.Address(), c.Address())
	require.True(t, strings.HasPrefix(a.Address(), "0x"))
	require.Len(t, a.Address(), 42)
}

func TestDescriptor(t *testing.T) {
	w, err := keywallet.Generate()
	require.NoError(t, err)

	d := w.Descriptor()
	require.Equal(t, users.WalletEmbedded, d.Kind)
	require.Equal(t, keywallet.Curve, d.Curve)
	// 0x prefix plus 33 compressed bytes
	require.Len(t, d.PublicKey, 68)
}

func TestSignAndRecover(t *testing.T) {
	w, err := keywallet.Generate()
	require.NoError(t, err)
	ctx := context.Background()

	sig, err := w.SignMessage(ctx, "transfer 10 USDC")
	require.NoError(t, err)
	signer, err := keywallet.RecoverMessageSigner("transfer 10 USDC", sig)
	require.NoError(t, err)
	require.Equal(t, w.Address(), signer)

	other, err := keywallet.RecoverMessageSigner("transfer 99 USDC", sig)
	require.NoError(t, err)
	require.NotEqual(t, w.Address(), other)

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	txSig, err := w.SignTransaction(ctx, payload)
	require.NoError(t, err)
	require.Len(t, txSig, 65)
	signer, err = keywallet.RecoverTransactionSigner(payload, txSig)
	require.NoError(t, err)
	require.Equal(t, w.Address(), signer)
}
