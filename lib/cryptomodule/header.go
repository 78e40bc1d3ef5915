// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptomodule

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	headerVersion  = 1
	identifierSize = 4

	// largeSizeMarker introduces a two-byte metadata size.
	largeSizeMarker = 0xFF
)

var sentinel = []byte("PNED")

// Identifier names a cryptor in the header.
type Identifier [identifierSize]byte

// legacyIdentifier is the all-zero identifier of header-less data.
var legacyIdentifier Identifier

func (id Identifier) String() string {
	if id == legacyIdentifier {
		return "legacy"
	}
	return string(id[:])
}

// header is a parsed cryptor header. A zero header means the data had
// none.
type header struct {
	identifier Identifier
	metadata   []byte
	length     int
}

// encodeHeader writes the header for id followed by metadata.
func encodeHeader(id Identifier, metadata []byte) ([]byte, error) {
	if len(metadata) > 0xFFFF {
		return nil, fmt.Errorf("%w: %d bytes of metadata", ErrMalformedHeader, len(metadata))
	}
	encoded := make([]byte, 0, len(sentinel)+1+identifierSize+3+len(metadata))
	encoded = append(encoded, sentinel...)
	encoded = append(encoded, headerVersion)
	encoded = append(encoded, id[:]...)
	if len(metadata) < largeSizeMarker {
		encoded = append(encoded, byte(len(metadata)))
	} else {
		encoded = append(encoded, largeSizeMarker)
		encoded = binary.BigEndian.AppendUint16(encoded, uint16(len(metadata)))
	}
	return append(encoded, metadata...), nil
}

// parseHeader reads the header at the start of data. found is false
// when data does not start with the sentinel.
func parseHeader(data []byte) (parsed header, found bool, err error) {
	if !bytes.HasPrefix(data, sentinel) {
		return header{}, false, nil
	}
	position := len(sentinel)
	if len(data) <= position {
		return header{}, true, ErrMalformedHeader
	}
	if version := data[position]; version != headerVersion {
		return header{}, true, fmt.Errorf("%w: header version %d", ErrUnknownCryptor, version)
	}
	position++

	if len(data) < position+identifierSize+1 {
		return header{}, true, ErrMalformedHeader
	}
	copy(parsed.identifier[:], data[position:position+identifierSize])
	position += identifierSize

	size := int(data[position])
	position++
	if size == largeSizeMarker {
		if len(data) < position+2 {
			return header{}, true, ErrMalformedHeader
		}
		size = int(binary.BigEndian.Uint16(data[position:]))
		position += 2
	}
	if len(data) < position+size {
		return header{}, true, fmt.Errorf("%w: %d bytes of metadata declared, %d available",
			ErrMalformedHeader, size, len(data)-position)
	}
	parsed.metadata = data[position : position+size]
	parsed.length = position + size
	return parsed, true, nil
}
