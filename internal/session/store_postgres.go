// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

// PostgreSQL implementations of the session data access contracts.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datomika/opsgate/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
FindByID retrieves a user record by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, COALESCE(federatedidtoken, ''), ratingaccess, isadmin, createdat, updatedat
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	return repository.scanOne(context, query, id)
}

/*
FindByEmail retrieves a user record by their unique email address.

Description: Performs a lookup on the account table, filtering out
soft-deleted users.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, COALESCE(federatedidtoken, ''), ratingaccess, isadmin, createdat, updatedat
		FROM users.account
		WHERE email = $1 AND deletedat IS NULL`

	return repository.scanOne(context, query, email)
}

// scanOne runs a single-row account query and hydrates the entity.
func (repository *PostgresUserRepository) scanOne(context context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FederatedIDToken,
		&user.RatingAccess,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return user, nil
}

// # Token Repository

// PostgresTokenRepository implements the TokenRepository interface.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new PostgreSQL implementation of TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

/*
Replace deletes every token owned by token.UserID and inserts the new one, in
a single transaction.

Description: The delete and insert commit or roll back together, so two
concurrent logins for the same user serialize on the user's token rows and
the at-most-one-live-token invariant holds even under races.

Parameters:
  - context: context.Context
  - token: *Token

Returns:
  - error: Transaction failures
*/
func (repository *PostgresTokenRepository) Replace(context context.Context, token *Token) error {
	const deleteQuery = `DELETE FROM users.token WHERE userid = $1`
	const insertQuery = `
		INSERT INTO users.token (
			id, userid, abilities, tokenhash, createdat, expiresat
		) VALUES ($1, $2, $3, $4, $5, $6)`

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	if _, err := transaction.Exec(context, deleteQuery, token.UserID); err != nil {
		return fmt.Errorf("postgres_token_repo_revoke_failed: %w", err)
	}

	if _, err := transaction.Exec(context, insertQuery,
		token.ID,
		token.UserID,
		token.Abilities,
		token.TokenHash,
		token.CreatedAt,
		token.ExpiresAt,
	); err != nil {
		return fmt.Errorf("postgres_token_repo_insert_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_token_repo_commit_failed: %w", err)
	}

	return nil
}

/*
FindByHash retrieves an unexpired token by its SHA-256 fingerprint.

Description: The expiry filter lives in the query itself, so an expired row
can never authorize a request even before the sweep removes it.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Token: Hydrated token metadata
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresTokenRepository) FindByHash(context context.Context, tokenHash string) (*Token, error) {
	const query = `
		SELECT id, userid, abilities, tokenhash, createdat, expiresat
		FROM users.token
		WHERE tokenhash = $1 AND expiresat > NOW()`

	token := &Token{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.Abilities,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "Token")
	}

	return token, nil
}

/*
DeleteByHash removes the token with the given fingerprint.

Description: Hard delete, idempotent — a zero-row result is success so a
retried logout does not fail.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Deletion failures
*/
func (repository *PostgresTokenRepository) DeleteByHash(context context.Context, tokenHash string) error {
	const query = `DELETE FROM users.token WHERE tokenhash = $1`
	_, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes all tokens past their expiration.

Description: Cleanup task run by the background sweeper.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresTokenRepository) DeleteExpired(context context.Context) error {
	const query = `DELETE FROM users.token WHERE expiresat <= NOW()`
	_, err := repository.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_delete_expired_failed: %w", err)
	}
	return nil
}
