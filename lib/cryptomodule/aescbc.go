// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"crypto/aes"

	"github.com/bureau-foundation/pubsub/lib/secret"
)

// AESCBC is the "ACRH" cryptor.
type AESCBC struct {
	key *secret.Buffer
}

var _ Cryptor = (*AESCBC)(nil)

// NewAESCBC returns an ACRH cryptor for cipherKey.
func NewAESCBC(cipherKey string) (*AESCBC, error) {
	hash, err := cipherKeyHash(cipherKey)
	if err != nil {
		return nil, err
	}
	key, err := secret.NewFromBytes(hash)
	if err != nil {
		return nil, err
	}
	return &AESCBC{key: key}, nil
}

func (c *AESCBC) Identifier() Identifier { return Identifier{'A', 'C', 'R', 'H'} }

func (c *AESCBC) Encrypt(plaintext []byte) (metadata, ciphertext []byte, err error) {
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = cbcEncrypt(c.key.Bytes(), iv, plaintext)
	if err != nil {
		return nil, nil, err
	}
	return iv, ciphertext, nil
}

func (c *AESCBC) Decrypt(metadata, ciphertext []byte) ([]byte, error) {
	return cbcDecrypt(c.key.Bytes(), metadata, ciphertext)
}

func (c *AESCBC) Close() error { return c.key.Close() }
