// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session Cache: The Redis key taxonomy read by downstream authorization middleware.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "opsgate-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	// It also bounds store/cache round-trips so a slow backend cannot pin a worker.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldErrors  = "errors"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldToken   = "token"
	FieldRating  = "rating"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Session Cache Taxonomy)
//
// These key names and their TTL semantics are a stable contract: they are read
// directly by the authorization-enforcement middleware downstream of this
// service. Renaming a prefix is a breaking change for every consumer.

const (
	// RedisPrefixAllowedObjects holds the JSON array of object IDs the
	// session's user may read.
	RedisPrefixAllowedObjects = "session:allowed_objects:"

	// RedisPrefixActivatedUser holds the owning user id, denormalized so
	// consumers avoid a store read per request.
	RedisPrefixActivatedUser = "session:user:"

	// RedisPrefixRatingAccess holds "0"/"1" for the user's rating_access
	// flag captured at login time.
	RedisPrefixRatingAccess = "session:rating:"

	// RedisPrefixLastActivity holds the RFC3339 timestamp of the session's
	// most recent authenticated request.
	RedisPrefixLastActivity = "session:last_activity:"

	// RedisPrefixOAuthState holds single-use CSRF nonces correlating a
	// federated logout initiation with its callback.
	RedisPrefixOAuthState = "session:oauth_state:"
)
