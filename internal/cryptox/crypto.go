// Package cryptox seals small secrets (the stored bearer token) at rest
// with AES-GCM under a key derived from a device secret via argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrOpen is returned when a sealed value cannot be authenticated, e.g. it
// was written under a different device secret.
var ErrOpen = errors.New("cannot open sealed value")

// DeriveKey derives a 32-byte AES-256 key from secret and salt.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Sealer encrypts and authenticates values. The output of Seal is
// nonce||ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer whose key is derived from secret and salt.
func NewSealer(secret []byte, salt []byte) (*Sealer, error) {
	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrOpen
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
