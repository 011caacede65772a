// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package sec

// AuthClaims represents the identity facts attached to a request after its
// bearer token has been validated.
//
// # Why a dedicated struct?
//
// The session layer resolves the opaque token against the store once, at the
// middleware boundary, and downstream handlers read these resolved facts from
// the request context. No handler re-reads the user row per request.
type AuthClaims struct {
	// UserID is the id of the account that owns the bearer token.
	UserID string

	// Token is the plaintext bearer token presented by the client. Carried so
	// that logout and snapshot operations can key the cache without having to
	// re-parse the Authorization header.
	Token string

	// RatingAccess mirrors the user's rating_access flag captured at login.
	RatingAccess bool

	// IsAdmin mirrors the user's is_admin flag.
	IsAdmin bool
}
