// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

// Package sec provides cryptographic primitives for credentials and bearer tokens.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, token generation)
// from the domain logic. It is an Infrastructure service used by the session
// layer; it never touches storage or transport itself.
package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a cryptographically random token of byteLength
// random bytes, hex-encoded (so the string is 2*byteLength characters).
//
// # Security
//
// The returned plaintext is shown to the caller exactly once. Only the
// [HashToken] fingerprint may be retained at rest.
func GenerateSecureToken(byteLength int) (string, error) {
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashToken returns the hex-encoded SHA-256 fingerprint of a plaintext token.
//
// SHA-256 (not bcrypt) is deliberate here: the input is already high-entropy
// random data, so a fast deterministic digest is safe and allows indexed
// lookups by fingerprint.
func HashToken(plaintext string) string {
	digest := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(digest[:])
}

// ConstantTimeEquals compares two strings without leaking the position of the
// first differing byte.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
