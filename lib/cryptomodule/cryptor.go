// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Cryptor is one encryption algorithm with its key.
type Cryptor interface {
	// Identifier is written to the header of data this cryptor
	// encrypts. The zero Identifier means no header.
	Identifier() Identifier

	// Encrypt returns header metadata and ciphertext for plaintext.
	Encrypt(plaintext []byte) (metadata, ciphertext []byte, err error)

	// Decrypt reverses Encrypt.
	Decrypt(metadata, ciphertext []byte) ([]byte, error)

	// Close releases the key.
	Close() error
}

// cipherKeyHash returns SHA-256 of key. The caller owns the result and
// should hand it to secret.NewFromBytes, which zeroes it.
func cipherKeyHash(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:], nil
}

func randomBytes(size int) ([]byte, error) {
	buffer := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return buffer, nil
}

func cbcEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func cbcDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: IV is %d bytes, want %d", ErrMalformedHeader, len(iv), aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrAuthentication, len(ciphertext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrAuthentication
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrAuthentication)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: invalid padding", ErrAuthentication)
		}
	}
	return data[:len(data)-padding], nil
}
