// Package keywallet is a single-key secp256k1 wallet used where the key lives in process:
// the mock adapter and the embedded wallet of the OIDC SDK binding.
package keywallet

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jrsteele09/go-auth-session/users"
)

const Curve = "secp256k1"

type Wallet struct {
	key *ecdsa.PrivateKey
}

func New(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key}
}

func Generate() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(key), nil
}

// FromSeed derives the key from the Keccak256 hash of seed, so the same seed always
// yields the same address.
func FromSeed(seed []byte) (*Wallet, error) {
	key, err := crypto.ToECDSA(crypto.Keccak256(seed))
	if err != nil {
		return nil, err
	}
	return New(key), nil
}

// Address is the EIP-55 checksummed address.
func (w *Wallet) Address() string {
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

func (w *Wallet) Descriptor() users.Wallet {
	return users.Wallet{
		PublicKey: hexutil.Encode(crypto.CompressPubkey(&w.key.PublicKey)),
		Kind:      users.WalletEmbedded,
		Curve:     Curve,
	}
}

func (w *Wallet) Wallets() []users.Wallet {
	return []users.Wallet{w.Descriptor()}
}

// SignMessage returns a hex encoded 65 byte signature over the EIP-191 personal message hash.
func (w *Wallet) SignMessage(_ context.Context, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// SignTransaction signs the Keccak256 digest of payload. The payload is not interpreted.
func (w *Wallet) SignTransaction(_ context.Context, payload []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(payload), w.key)
}

// RecoverMessageSigner returns the address that produced sigHex over message.
func RecoverMessageSigner(message, sigHex string) (string, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return "", err
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// RecoverTransactionSigner returns the address that produced sig over payload.
func RecoverTransactionSigner(payload, sig []byte) (string, error) {
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
