// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the client's CBOR configuration.
//
// The service speaks JSON, and nothing here changes that. CBOR is used
// only for state the client writes for itself, such as the cursor
// state file, where a compact, deterministic and self-describing
// encoding is preferable to JSON.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces the same bytes, so a state file
// can be compared or hashed without decoding it.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that implement encoding.TextMarshaler, such as
// subscribe.Cursor, are encoded as CBOR text strings.
//
// Use `cbor` struct tags on types that are only ever written as CBOR.
// Types that are also printed as JSON carry `json` tags alone;
// fxamacker/cbor falls back to them when no `cbor` tag is present.
package codec
