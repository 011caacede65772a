// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the read-only data access contract for user accounts.
//
// This core never mutates accounts; account management lives outside it.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)
}

// # Token Data Access

// TokenRepository defines the data access contract for bearer tokens.
type TokenRepository interface {

	/*
		Replace atomically deletes every token owned by token.UserID and
		persists the new token, serializing concurrent issuance for one user.

		Invariant: a user has at most one live token at any time.

		Parameters:
		  - context: context.Context
		  - token: *Token

		Returns:
		  - error: Persistence failures
	*/
	Replace(context context.Context, token *Token) error

	/*
		FindByHash returns the unexpired token matching the given fingerprint.

		Rows past their expiration are never returned, which is the lazy half
		of expiry enforcement.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Token: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByHash(context context.Context, tokenHash string) (*Token, error)

	/*
		DeleteByHash removes the token with the given fingerprint.

		Idempotent: deleting an absent token is not an error.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteByHash(context context.Context, tokenHash string) error

	/*
		DeleteExpired physically removes tokens whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context) error
}

// # Snapshot Cache Access

// SnapshotCache defines the contract for the token-keyed session snapshot
// store. The backend is process-external and shared by all workers; TTL
// expiry is the backend's own responsibility.
type SnapshotCache interface {

	/*
		Put writes the full snapshot for a token with a shared TTL.

		The four underlying entries are written sequentially, not
		transactionally; a crash mid-write may leave a partial snapshot.

		Parameters:
		  - context: context.Context
		  - token: string (plaintext token, the cache key)
		  - snapshot: Snapshot

		Returns:
		  - error: Cache write failures
	*/
	Put(context context.Context, token string, snapshot Snapshot) error

	/*
		Get returns the snapshot for a token, or a miss error.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *Snapshot: Hydrated snapshot
		  - error: apperr.NotFound on miss, or cache failures
	*/
	Get(context context.Context, token string) (*Snapshot, error)

	/*
		Invalidate deletes every snapshot entry for a token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Cache delete failures
	*/
	Invalidate(context context.Context, token string) error

	/*
		Touch refreshes only the last-activity entry and its TTL.

		Parameters:
		  - context: context.Context
		  - token: string
		  - at: time.Time

		Returns:
		  - error: Cache write failures
	*/
	Touch(context context.Context, token string, at time.Time) error
}

// # CSRF State Access

// StateStore defines the contract for single-use federated-logout CSRF nonces.
type StateStore interface {

	/*
		Create stores a nonce associated with a userID for a limited duration.

		Parameters:
		  - context: context.Context
		  - nonce: string
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, nonce string, userID string, ttl time.Duration) error

	/*
		Consume reads AND deletes the nonce in one step, so a nonce verifies
		at most once. A second consume of the same value always misses.

		Parameters:
		  - context: context.Context
		  - nonce: string

		Returns:
		  - string: UserID the nonce was created for
		  - error: apperr miss on absent/expired nonce, or retrieval failures
	*/
	Consume(context context.Context, nonce string) (string, error)
}
