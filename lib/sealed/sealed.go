// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed opens age-encrypted secrets, such as an access token
// file that should never sit on disk in the clear.
//
// A sealed file is an ordinary age file, binary or ASCII-armored, and
// can be produced with the age command line tool or with [Seal]. The
// identity that opens it is an age identity file as written by
// age-keygen: comment lines followed by one or more AGE-SECRET-KEY-1
// lines. Identities and plaintext are returned in [secret.Buffer]
// values and must be closed by the caller.
package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/pubsub/lib/secret"
)

// ErrEmptyPlaintext is returned when a sealed file decrypts to
// nothing.
var ErrEmptyPlaintext = errors.New("sealed: plaintext is empty")

// Keypair is an age x25519 identity and its recipient.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1 identity.
	PrivateKey *secret.Buffer

	// PublicKey is the age1 recipient; it is safe to publish.
	PublicKey string
}

// Close releases the private key.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair creates a fresh x25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Keypair{PrivateKey: privateKey, PublicKey: identity.Recipient().String()}, nil
}

// ParseRecipient validates an age1 public key.
func ParseRecipient(publicKey string) (age.Recipient, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return nil, fmt.Errorf("sealed: invalid recipient %q: %w", publicKey, err)
	}
	return recipient, nil
}

// Seal encrypts plaintext to every recipient. With armored set the
// output is PEM-style text that survives copy and paste.
func Seal(plaintext []byte, recipientKeys []string, armored bool) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, errors.New("sealed: at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := ParseRecipient(key)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}

	var output bytes.Buffer
	var sink io.Writer = &output
	var armorWriter io.WriteCloser
	if armored {
		armorWriter = armor.NewWriter(&output)
		sink = armorWriter
	}
	writer, err := age.Encrypt(sink, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing: %w", err)
	}
	if armorWriter != nil {
		if err := armorWriter.Close(); err != nil {
			return nil, fmt.Errorf("sealed: finalizing armor: %w", err)
		}
	}
	return output.Bytes(), nil
}

// Open decrypts ciphertext with the identities in identityFile, the
// contents of an age identity file. Armored input is detected from its
// header.
func Open(ciphertext []byte, identityFile *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identity: %w", err)
	}

	source := bufio.NewReader(bytes.NewReader(ciphertext))
	var input io.Reader = source
	if start, _ := source.Peek(len(armor.Header)); string(start) == armor.Header {
		input = armor.NewReader(source)
	}

	reader, err := age.Decrypt(input, identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}
	return secret.NewFromBytes(plaintext)
}

// OpenFile reads the sealed file at path and opens it with the
// identity file at identityPath.
func OpenFile(path, identityPath string) (*secret.Buffer, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	identity, err := secret.ReadFromPath(identityPath)
	if err != nil {
		return nil, err
	}
	defer identity.Close()
	return Open(ciphertext, identity)
}
