// Package boltstore provides a BBolt-backed credential store.
package boltstore

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/jrsteele09/go-auth-session/credentials"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/chacha20poly1305"
)

var bucketName = []byte("credentials")

// Store implements credentials.Store backed by a BBolt database.
type Store struct {
	db   *bbolt.DB
	aead cipher.AEAD
}

var _ credentials.Store = (*Store)(nil)

type Option func(*Store) error

// WithSealingKey encrypts values at rest with XChaCha20-Poly1305. The key must be 32 bytes.
func WithSealingKey(key []byte) Option {
	return func(s *Store) error {
		if key == nil {
			return nil
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return fmt.Errorf("sealing key: %w", err)
		}
		s.aead = aead
		return nil
	}
}

// New returns a Store backed by the given BBolt database.
func New(db *bbolt.DB, options ...Option) (*Store, error) {
	s := &Store{db: db}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating credentials bucket: %w", err)
	}
	return s, nil
}

// NewFromFile opens a BBolt database at the given path and returns a new Store.
func NewFromFile(path string, boltOptions *bbolt.Options, options ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, boltOptions)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := New(db, options...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AccessToken() (string, error) {
	return s.get(credentials.AccessTokenKey)
}

func (s *Store) RefreshToken() (string, error) {
	return s.get(credentials.RefreshTokenKey)
}

func (s *Store) SetTokens(accessToken, refreshToken string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := s.put(b, credentials.AccessTokenKey, accessToken); err != nil {
			return err
		}
		if refreshToken == "" {
			return b.Delete([]byte(credentials.RefreshTokenKey))
		}
		return s.put(b, credentials.RefreshTokenKey, refreshToken)
	})
	if err != nil {
		return &credentials.StoreError{Operation: "save", Cause: err}
	}
	return nil
}

func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete([]byte(credentials.AccessTokenKey)); err != nil {
			return err
		}
		return b.Delete([]byte(credentials.RefreshTokenKey))
	})
	if err != nil {
		return &credentials.StoreError{Operation: "clear", Cause: err}
	}
	return nil
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return nil
		}
		value = s.open(key, data)
		return nil
	})
	if err != nil {
		return "", &credentials.StoreError{Operation: "load", Key: key, Cause: err}
	}
	return value, nil
}

func (s *Store) put(b *bbolt.Bucket, key, value string) error {
	data, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

// seal prefixes the nonce to the ciphertext. The key name is bound as associated data
// so an access token cannot be swapped into the refresh slot.
func (s *Store) seal(key, value string) ([]byte, error) {
	if s.aead == nil {
		return []byte(value), nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, []byte(value), []byte(key)), nil
}

// open returns "" for anything that fails to decrypt; a value we cannot read is as good as absent.
func (s *Store) open(key string, data []byte) string {
	if s.aead == nil {
		return string(data)
	}
	if len(data) < s.aead.NonceSize() {
		return ""
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return ""
	}
	return string(plain)
}
