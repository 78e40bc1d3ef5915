// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/pubsub/lib/secret"
)

// hkdfInfoXChaCha separates this key derivation from any other use of
// the cipher key. Changing it invalidates all XCP1 ciphertext.
var hkdfInfoXChaCha = []byte("pubsub.cryptomodule.xcp1.v1")

// XChaCha is the "XCP1" cryptor. The header identifier is
// authenticated as additional data, so a payload cannot be replayed
// under another cryptor's header.
type XChaCha struct {
	key *secret.Buffer
}

var _ Cryptor = (*XChaCha)(nil)

// NewXChaCha returns an XCP1 cryptor for cipherKey.
func NewXChaCha(cipherKey string) (*XChaCha, error) {
	if cipherKey == "" {
		return nil, ErrEmptyKey
	}
	derived := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, []byte(cipherKey), nil, hkdfInfoXChaCha)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("deriving XCP1 key: %w", err)
	}
	key, err := secret.NewFromBytes(derived)
	if err != nil {
		return nil, err
	}
	return &XChaCha{key: key}, nil
}

func (c *XChaCha) Identifier() Identifier { return Identifier{'X', 'C', 'P', '1'} }

func (c *XChaCha) Encrypt(plaintext []byte) (metadata, ciphertext []byte, err error) {
	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce, err := randomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, nil, err
	}
	id := c.Identifier()
	return nonce, aead.Seal(nil, nonce, plaintext, id[:]), nil
}

func (c *XChaCha) Decrypt(metadata, ciphertext []byte) ([]byte, error) {
	if len(metadata) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrMalformedHeader, len(metadata), chacha20poly1305.NonceSizeX)
	}
	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	id := c.Identifier()
	plaintext, err := aead.Open(nil, metadata, ciphertext, id[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return plaintext, nil
}

func (c *XChaCha) Close() error { return c.key.Close() }
