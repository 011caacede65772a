// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

/*
Package session implements the token-based authentication core of Opsgate.

It defines the domain entities (User, Token, Snapshot) and the logic for
credential verification, bearer-token lifecycle, and the dual-mode
local/federated login and logout flows.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
transport dependencies and encapsulate all business rules related to
authenticated session state.
*/
package session

import (
	"time"
)

// # Domain Entities

// User represents an operator account of the internal operations application.
//
// Accounts are owned by the persistent user store; this core reads them for
// credential checks but never creates or deletes them.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.

	// FederatedIDToken is the raw OIDC id_token issued by the federated
	// identity provider, present only if the user last authenticated through
	// it. Omitted from JSON: it is credential material.
	FederatedIDToken string `json:"-"`

	// RatingAccess gates access to the rating feature.
	RatingAccess bool `json:"rating_access"`

	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Token represents an opaque bearer credential owned by exactly one user.
//
// The plaintext value is returned to the client exactly once at login; only
// the SHA-256 fingerprint is retained at rest.
type Token struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Abilities is the set of permitted abilities. {"*"} means unrestricted.
	Abilities []string `json:"abilities"`

	TokenHash string    `json:"-"` // SHA-256 fingerprint of the plaintext. Omitted for security.
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token's absolute expiration has passed.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Snapshot is the cache-resident copy of authorization facts for one session,
// keyed by the token's plaintext value and computed once at login.
type Snapshot struct {
	// AllowedObjectIDs is the set of identifiers the user may read, computed
	// by the external authorization-rights resolver. Opaque to this core.
	AllowedObjectIDs []string

	// ActivatedUserID is the owning user id, denormalized so consumers avoid
	// a store read per request.
	ActivatedUserID string

	// RatingAccess is the user's rating_access flag at login time.
	RatingAccess bool

	// LastActivity is refreshed on every authenticated request.
	LastActivity time.Time
}

// # Session Origin

// Origin is the tagged variant describing where a session was established.
// Modeling this as a closed set (rather than a nullable id_token field) keeps
// the logout branch exhaustive.
type Origin interface {
	isOrigin()
}

// LocalOrigin marks a session established with local password credentials.
type LocalOrigin struct{}

// FederatedOrigin marks a session established through the federated identity
// provider, carrying the id_token needed to terminate the provider's session.
type FederatedOrigin struct {
	IDToken string
}

func (LocalOrigin) isOrigin()     {}
func (FederatedOrigin) isOrigin() {}

// Origin derives the session origin variant from the user record.
func (u *User) Origin() Origin {
	if u.FederatedIDToken != "" {
		return FederatedOrigin{IDToken: u.FederatedIDToken}
	}
	return LocalOrigin{}
}

// # Field Identifiers

// Global field names for validation and response mapping in the session domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldToken           = "token"
	FieldRating          = "rating"
	FieldStatus          = "status"
	FieldMessage         = "message"
	FieldRedirectLink    = "redirectLink"
	FieldState           = "state"
	FieldShowSudirButton = "showSudirButton"
	FieldSudirLoginLink  = "sudirLoginLink"
)
