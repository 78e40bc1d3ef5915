// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"

	"github.com/bureau-foundation/pubsub/lib/secret"
)

// constantIV is the fixed IV of legacy clients that did not randomize.
var constantIV = []byte("0123456789012345")

// Legacy decrypts and produces header-less AES-256-CBC data. Its key is
// the hex encoding of the first half of SHA-256(cipher key). With
// RandomIV the IV is prepended to the ciphertext; without it every
// message uses the same constant IV.
type Legacy struct {
	key      *secret.Buffer
	randomIV bool
}

var _ Cryptor = (*Legacy)(nil)

// NewLegacy returns a legacy cryptor for cipherKey.
func NewLegacy(cipherKey string, randomIV bool) (*Legacy, error) {
	hash, err := cipherKeyHash(cipherKey)
	if err != nil {
		return nil, err
	}
	encoded := []byte(hex.EncodeToString(hash[:aes.BlockSize]))
	clear(hash)
	key, err := secret.NewFromBytes(encoded)
	if err != nil {
		return nil, err
	}
	return &Legacy{key: key, randomIV: randomIV}, nil
}

func (c *Legacy) Identifier() Identifier { return legacyIdentifier }

func (c *Legacy) Encrypt(plaintext []byte) (metadata, ciphertext []byte, err error) {
	iv := constantIV
	if c.randomIV {
		if iv, err = randomBytes(aes.BlockSize); err != nil {
			return nil, nil, err
		}
	}
	encrypted, err := cbcEncrypt(c.key.Bytes(), iv, plaintext)
	if err != nil {
		return nil, nil, err
	}
	if !c.randomIV {
		return nil, encrypted, nil
	}
	return nil, append(iv, encrypted...), nil
}

func (c *Legacy) Decrypt(_, ciphertext []byte) ([]byte, error) {
	if !c.randomIV {
		return cbcDecrypt(c.key.Bytes(), constantIV, ciphertext)
	}
	if len(ciphertext) <= aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for IV and data", ErrAuthentication, len(ciphertext))
	}
	return cbcDecrypt(c.key.Bytes(), ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:])
}

func (c *Legacy) Close() error { return c.key.Close() }
