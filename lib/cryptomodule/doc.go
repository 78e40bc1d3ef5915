// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cryptomodule encrypts and decrypts message payloads end to
// end, so the service only ever relays ciphertext.
//
// A [Module] pairs a default [Cryptor], used for encryption, with any
// number of cryptors kept for decrypting data written by older
// clients. Every encrypted payload except legacy ones starts with a
// header naming the cryptor that produced it:
//
//	"PNED" | version (1) | cryptor id (4 bytes) | metadata size | metadata
//
// The metadata size is one byte below 255, otherwise 0xFF followed by a
// big-endian uint16. Header-less data is handed to the [Legacy]
// cryptor when one is registered.
//
// Cryptors:
//
//   - [AESCBC] ("ACRH"): AES-256-CBC, key SHA-256(cipher key), random
//     IV carried as metadata, PKCS#7 padding.
//   - [XChaCha] ("XCP1"): XChaCha20-Poly1305, key derived with
//     HKDF-SHA256, nonce carried as metadata.
//   - [Legacy]: header-less AES-256-CBC for data from clients that
//     predate the header.
//
// Derived keys live in [secret.Buffer]s; call Close on a Module when
// done with it.
package cryptomodule
