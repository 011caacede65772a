// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session

import "time"

// # Session Constraints

const (
	// TokenTTL is the absolute lifetime of a bearer token. One working day:
	// a token issued at morning login survives until the next morning.
	TokenTTL = 24 * time.Hour

	// TokenByteLength is the byte length of the random token material.
	// Hex-encoded, this yields the 64-character opaque values clients see.
	TokenByteLength = 32

	// SnapshotTTL is the lifetime of each session snapshot cache entry.
	// It matches TokenTTL so the snapshot never outlives its token.
	SnapshotTTL = 24 * time.Hour

	// OAuthStateTTL is the lifetime of a federated-logout CSRF nonce.
	// Short-lived: the provider round-trip completes within seconds.
	OAuthStateTTL = 10 * time.Minute

	// OAuthStateByteLength is the byte length of the random CSRF nonce.
	OAuthStateByteLength = 16

	// TokenSweepInterval is how often the background sweep deletes expired
	// token rows. Expiry is also enforced lazily on every validation, so the
	// sweep is purely hygiene.
	TokenSweepInterval = 1 * time.Hour
)

// AbilityAll is the wildcard ability granting unrestricted token scope.
const AbilityAll = "*"
