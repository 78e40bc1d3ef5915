// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"go.uber.org/multierr"
)

// Module encrypts with its default cryptor and decrypts with whichever
// registered cryptor the data names.
type Module struct {
	defaultCryptor Cryptor
	cryptors       []Cryptor
}

// New returns a Module that encrypts with defaultCryptor and can also
// decrypt data produced by others. The Module takes ownership of every
// cryptor and closes them in Close.
func New(defaultCryptor Cryptor, others ...Cryptor) *Module {
	return &Module{defaultCryptor: defaultCryptor, cryptors: others}
}

// NewAESCBCModule encrypts with ACRH and still reads legacy data.
func NewAESCBCModule(cipherKey string, randomIV bool) (*Module, error) {
	current, err := NewAESCBC(cipherKey)
	if err != nil {
		return nil, err
	}
	legacy, err := NewLegacy(cipherKey, randomIV)
	if err != nil {
		current.Close()
		return nil, err
	}
	return New(current, legacy), nil
}

// NewLegacyModule encrypts header-less legacy data and also reads ACRH.
func NewLegacyModule(cipherKey string, randomIV bool) (*Module, error) {
	legacy, err := NewLegacy(cipherKey, randomIV)
	if err != nil {
		return nil, err
	}
	current, err := NewAESCBC(cipherKey)
	if err != nil {
		legacy.Close()
		return nil, err
	}
	return New(legacy, current), nil
}

// NewXChaChaModule encrypts with XCP1 and reads ACRH and legacy data.
func NewXChaChaModule(cipherKey string, randomIV bool) (*Module, error) {
	xchacha, err := NewXChaCha(cipherKey)
	if err != nil {
		return nil, err
	}
	aesModule, err := NewAESCBCModule(cipherKey, randomIV)
	if err != nil {
		xchacha.Close()
		return nil, err
	}
	return New(xchacha, aesModule.defaultCryptor, aesModule.cryptors[0]), nil
}

// Encrypt encrypts plaintext with the default cryptor and prefixes the
// header.
func (m *Module) Encrypt(plaintext []byte) ([]byte, error) {
	id := m.defaultCryptor.Identifier()
	if len(plaintext) == 0 {
		return nil, &CryptoError{Op: "encrypt", Cryptor: id.String(), Err: ErrEmptyData}
	}
	metadata, ciphertext, err := m.defaultCryptor.Encrypt(plaintext)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt", Cryptor: id.String(), Err: err}
	}
	if id == legacyIdentifier {
		return ciphertext, nil
	}
	encoded, err := encodeHeader(id, metadata)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt", Cryptor: id.String(), Err: err}
	}
	return append(encoded, ciphertext...), nil
}

// Decrypt decrypts data produced by any registered cryptor.
func (m *Module) Decrypt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CryptoError{Op: "decrypt", Err: ErrEmptyData}
	}
	parsed, found, err := parseHeader(data)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt", Err: err}
	}
	id := legacyIdentifier
	payload := data
	if found {
		id = parsed.identifier
		payload = data[parsed.length:]
	}

	cryptor := m.cryptor(id)
	if cryptor == nil {
		return nil, &CryptoError{Op: "decrypt", Cryptor: id.String(), Err: ErrUnknownCryptor}
	}
	if len(payload) == 0 {
		return nil, &CryptoError{Op: "decrypt", Cryptor: id.String(), Err: ErrEmptyData}
	}
	plaintext, err := cryptor.Decrypt(parsed.metadata, payload)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt", Cryptor: id.String(), Err: err}
	}
	return plaintext, nil
}

// Close releases every cryptor's key.
func (m *Module) Close() error {
	err := m.defaultCryptor.Close()
	for _, cryptor := range m.cryptors {
		err = multierr.Append(err, cryptor.Close())
	}
	return err
}

func (m *Module) cryptor(id Identifier) Cryptor {
	if m.defaultCryptor.Identifier() == id {
		return m.defaultCryptor
	}
	for _, cryptor := range m.cryptors {
		if cryptor.Identifier() == id {
			return cryptor
		}
	}
	return nil
}
