// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when a cryptor is created without a
	// cipher key.
	ErrEmptyKey = errors.New("cryptomodule: cipher key is empty")

	// ErrEmptyData is returned for empty plaintext or ciphertext.
	ErrEmptyData = errors.New("cryptomodule: data is empty")

	// ErrMalformedHeader is returned for data that starts with the
	// header sentinel but is truncated or inconsistent.
	ErrMalformedHeader = errors.New("cryptomodule: malformed header")

	// ErrUnknownCryptor is returned when the header names a cryptor
	// the module does not have, or a header version this package does
	// not understand.
	ErrUnknownCryptor = errors.New("cryptomodule: unknown cryptor")

	// ErrAuthentication is returned when ciphertext fails to decrypt
	// under the key: wrong key, corrupted data, or bad padding.
	ErrAuthentication = errors.New("cryptomodule: decryption failed")
)

// CryptoError reports a failed encryption or decryption.
type CryptoError struct {
	// Op is "encrypt" or "decrypt".
	Op string

	// Cryptor is the identifier of the cryptor involved, if known.
	Cryptor string

	Err error
}

func (e *CryptoError) Error() string {
	if e.Cryptor == "" {
		return fmt.Sprintf("cryptomodule: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cryptomodule: %s with %s: %v", e.Op, e.Cryptor, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// IsCryptoError reports whether err is or wraps a *CryptoError.
func IsCryptoError(err error) bool {
	var cryptoErr *CryptoError
	return errors.As(err, &cryptoErr)
}
