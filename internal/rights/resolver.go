// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

/*
Package rights exposes the authorization-rights collaborator consumed at login.

The session core does not evaluate authorization policy itself; it only asks
this resolver for the set of object identifiers a user may read, and copies
the answer into the session snapshot. How permitted object IDs are computed
is outside the authentication core.
*/
package rights

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Resolver answers which object identifiers a user may read.
type Resolver interface {

	/*
		AllowedObjectIDs returns the identifiers the user may read. The values
		are opaque to the session core.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []string: Permitted object identifiers (possibly empty, never nil)
		  - error: Resolution failures
	*/
	AllowedObjectIDs(context context.Context, userID string) ([]string, error)
}

// # PostgreSQL Resolver

// PostgresResolver implements Resolver against the users.permission table.
type PostgresResolver struct {
	pool *pgxpool.Pool
}

// NewPostgresResolver creates a new PostgreSQL implementation of Resolver.
func NewPostgresResolver(pool *pgxpool.Pool) *PostgresResolver {
	return &PostgresResolver{pool: pool}
}

/*
AllowedObjectIDs reads the user's permitted object identifiers.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []string: Permitted object identifiers
  - error: Database retrieval failures
*/
func (resolver *PostgresResolver) AllowedObjectIDs(context context.Context, userID string) ([]string, error) {
	const query = `
		SELECT objectid
		FROM users.permission
		WHERE userid = $1`

	rows, err := resolver.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_rights_resolver_query_failed: %w", err)
	}
	defer rows.Close()

	objectIDs := make([]string, 0)
	for rows.Next() {
		var objectID string
		if err := rows.Scan(&objectID); err != nil {
			return nil, fmt.Errorf("postgres_rights_resolver_scan_failed: %w", err)
		}
		objectIDs = append(objectIDs, objectID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_rights_resolver_rows_failed: %w", err)
	}

	return objectIDs, nil
}
