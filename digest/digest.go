//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package digest defines the content fingerprint used to address blobs
// and directory trees in a store.
package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// FingerprintLen is the length in bytes of a raw fingerprint.
const FingerprintLen = 32

// Digest identifies an immutable blob or directory tree by its
// BLAKE3-256 fingerprint and length in bytes. The zero value means
// "unset" and never addresses stored content.
type Digest struct {
	// Fingerprint is the lowercase hex encoding of the BLAKE3-256 hash.
	Fingerprint string `cbor:"1,keyasint" json:"fingerprint"`
	// SizeBytes is the length of the fingerprinted content.
	SizeBytes int64 `cbor:"2,keyasint" json:"size_bytes"`
}

// FromBytes computes the digest of the given content.
func FromBytes(b []byte) Digest {
	sum := blake3.Sum256(b)
	return Digest{
		Fingerprint: hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(b)),
	}
}

// Parse builds a Digest from a hex fingerprint and size, validating the
// fingerprint shape.
func Parse(fingerprint string, sizeBytes int64) (Digest, error) {
	raw, err := hex.DecodeString(fingerprint)
	if err != nil {
		return Digest{}, fmt.Errorf("digest: invalid fingerprint %q: %w", fingerprint, err)
	}
	if len(raw) != FingerprintLen {
		return Digest{}, fmt.Errorf("digest: fingerprint must be %d bytes, got %d", FingerprintLen, len(raw))
	}
	if sizeBytes < 0 {
		return Digest{}, fmt.Errorf("digest: negative size %d", sizeBytes)
	}
	return Digest{Fingerprint: fingerprint, SizeBytes: sizeBytes}, nil
}

// IsZero reports whether the digest is the unset zero value.
func (d Digest) IsZero() bool {
	return d.Fingerprint == "" && d.SizeBytes == 0
}

// String renders the digest as "<fingerprint>/<size>".
func (d Digest) String() string {
	return fmt.Sprintf("%s/%d", d.Fingerprint, d.SizeBytes)
}
