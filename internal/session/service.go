// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/sec"
	"github.com/datomika/opsgate/internal/rights"
	"github.com/datomika/opsgate/pkg/uuidv7"
)

// # Contracts & Types

// FederatedProvider is the capability surface of the federated identity
// adapter that the session service depends on.
//
// A misconfigured or unreachable provider degrades Enabled to false; none of
// these methods may fail a login or logout.
type FederatedProvider interface {
	// Enabled reports whether federated login is configured for this deployment.
	Enabled() bool

	// AuthorizationURL returns the redirect URL starting a federated login.
	// Pure function of configuration.
	AuthorizationURL() string

	// LogoutURL returns the provider logout URL for the given id_token and
	// CSRF state nonce.
	LogoutURL(idToken, state string) string
}

// Service implements the session use cases: login, logout, availability, and
// bearer-token validation.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks,
// token issuance, or the logout flow must be reviewed by the security team.
type Service struct {
	userRepository  UserRepository
	tokenRepository TokenRepository
	snapshotCache   SnapshotCache
	stateStore      StateStore
	rightsResolver  rights.Resolver
	federated       FederatedProvider
	loginPageURL    string
	logger          *slog.Logger

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewService constructs a new session [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	tokenRepo TokenRepository,
	snapshots SnapshotCache,
	states StateStore,
	resolver rights.Resolver,
	federated FederatedProvider,
	loginPageURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:  userRepo,
		tokenRepository: tokenRepo,
		snapshotCache:   snapshots,
		stateStore:      states,
		rightsResolver:  resolver,
		federated:       federated,
		loginPageURL:    loginPageURL,
		logger:          logger,
		now:             time.Now,
	}
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt. Both fields
// are already syntactically validated at the transport layer.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult represents a successfully established session.
type LoginResult struct {
	// Token is the plaintext bearer token. This is the only place it ever
	// appears; the store retains just its fingerprint.
	Token string

	// RatingAccess mirrors the user's rating_access flag at login time.
	RatingAccess bool

	User *User
}

/*
Login verifies credentials and establishes a new session.

Description: Performs the constant-time password comparison, rotates the
user's bearer token (revoke-then-issue in one transaction), resolves the
allowed object set, and populates the session snapshot cache. Token issuance
always completes before any snapshot write, since the snapshot is keyed by
the token value.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Transport-ready session credentials
  - err: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {

	// Look up the account. Generic message on miss to prevent enumeration:
	// an unknown email and a wrong password are indistinguishable to callers.
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify the password hash with bcrypt's constant-time comparison.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Generate the opaque bearer token.
	plaintext, err := sec.GenerateSecureToken(TokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("session_service_token_generation_failed: %w", err)
	}

	now := service.now()
	token := &Token{
		ID:        uuidv7.New(),
		UserID:    user.ID,
		Abilities: []string{AbilityAll},
		TokenHash: sec.HashToken(plaintext),
		CreatedAt: now,
		ExpiresAt: now.Add(TokenTTL),
	}

	// Revoke-then-issue in one transaction: at most one live token per user,
	// and two concurrent logins for the same account serialize on the row set.
	if err := service.tokenRepository.Replace(context, token); err != nil {
		return nil, fmt.Errorf("session_service_token_replace_failed: %w", err)
	}

	// Resolve the allowed object set from the authorization-rights collaborator.
	allowedObjectIDs, err := service.rightsResolver.AllowedObjectIDs(context, user.ID)
	if err != nil {
		// The session is unusable without its snapshot; roll the token back
		// so no half-authenticated state survives this failure.
		_ = service.tokenRepository.DeleteByHash(context, token.TokenHash)
		return nil, fmt.Errorf("session_service_rights_resolution_failed: %w", err)
	}

	// Populate the snapshot cache, keyed by the plaintext token.
	snapshot := Snapshot{
		AllowedObjectIDs: allowedObjectIDs,
		ActivatedUserID:  user.ID,
		RatingAccess:     user.RatingAccess,
		LastActivity:     now,
	}
	if err := service.snapshotCache.Put(context, plaintext, snapshot); err != nil {
		_ = service.tokenRepository.DeleteByHash(context, token.TokenHash)
		return nil, fmt.Errorf("session_service_snapshot_write_failed: %w", err)
	}

	return &LoginResult{
		Token:        plaintext,
		RatingAccess: user.RatingAccess,
		User:         user,
	}, nil
}

// # Bearer Validation

/*
ValidateBearer resolves a plaintext bearer token into request claims.

Description: Looks the token up by its SHA-256 fingerprint. Unknown and
expired tokens are rejected identically. On success the snapshot's
last-activity entry is refreshed (best effort — a cache hiccup must not fail
an otherwise valid request).

Parameters:
  - context: context.Context
  - plaintext: string

Returns:
  - *sec.AuthClaims: Resolved identity facts
  - err: Unauthorized for unknown/expired tokens, or storage failures
*/
func (service *Service) ValidateBearer(context context.Context, plaintext string) (*sec.AuthClaims, error) {

	token, err := service.tokenRepository.FindByHash(context, sec.HashToken(plaintext))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	// The repository already filters expired rows; re-check here so a fake
	// or cached repository cannot hand back a stale token.
	if token.Expired(service.now()) {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	user, err := service.userRepository.FindByID(context, token.UserID)
	if err != nil {
		// A token whose owning record is gone must never authorize a request.
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	if err := service.snapshotCache.Touch(context, plaintext, service.now()); err != nil {
		service.logger.WarnContext(context, "session_snapshot_touch_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return &sec.AuthClaims{
		UserID:       user.ID,
		Token:        plaintext,
		RatingAccess: user.RatingAccess,
		IsAdmin:      user.IsAdmin,
	}, nil
}

// # Logout Flow

// LogoutResult carries the message and redirect target returned to the client.
type LogoutResult struct {
	Message      string
	RedirectLink string
}

/*
Logout terminates the session behind the given claims.

Description: Revokes the bearer token and invalidates the session snapshot
FIRST, so a client retrying with the old token is reliably rejected and a
later rejected provider callback never finds a live local session. Then it
branches on the session origin: federated sessions get the provider's logout
URL (with a fresh single-use CSRF nonce); local sessions get the local login
page.

Parameters:
  - context: context.Context
  - claims: *sec.AuthClaims

Returns:
  - *LogoutResult: Message and redirect link
  - err: Storage failures
*/
func (service *Service) Logout(context context.Context, claims *sec.AuthClaims) (*LogoutResult, error) {

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("session_service_logout_user_lookup_failed: %w", err)
	}

	// Revoke before any redirect is produced. Both operations are idempotent.
	if err := service.tokenRepository.DeleteByHash(context, sec.HashToken(claims.Token)); err != nil {
		return nil, fmt.Errorf("session_service_token_revoke_failed: %w", err)
	}
	if err := service.snapshotCache.Invalidate(context, claims.Token); err != nil {
		service.logger.WarnContext(context, "session_snapshot_invalidate_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	switch origin := user.Origin().(type) {
	case FederatedOrigin:
		link, err := service.beginFederatedLogout(context, user, origin)
		if err != nil {
			return nil, err
		}
		return &LogoutResult{Message: "Logged out", RedirectLink: link}, nil

	case LocalOrigin:
		return &LogoutResult{Message: "Logged out", RedirectLink: service.loginPageURL}, nil

	default:
		return nil, apperr.Internal(fmt.Errorf("session: unknown session origin %T", origin))
	}
}

// beginFederatedLogout stores a single-use CSRF nonce and builds the provider
// logout URL. If the provider is not usable, the local login page is returned
// instead — the local session is already terminated either way.
func (service *Service) beginFederatedLogout(context context.Context, user *User, origin FederatedOrigin) (string, error) {
	if !service.federated.Enabled() {
		service.logger.WarnContext(context, "federated_logout_provider_unavailable",
			slog.String("user_id", user.ID),
		)
		return service.loginPageURL, nil
	}

	nonce, err := sec.GenerateSecureToken(OAuthStateByteLength)
	if err != nil {
		return "", fmt.Errorf("session_service_state_generation_failed: %w", err)
	}

	if err := service.stateStore.Create(context, nonce, user.ID, OAuthStateTTL); err != nil {
		return "", fmt.Errorf("session_service_state_store_failed: %w", err)
	}

	return service.federated.LogoutURL(origin.IDToken, nonce), nil
}

/*
CompleteFederatedLogout verifies the CSRF state of a provider logout callback.

Description: Consumes the nonce exactly once. An absent, expired, or already
consumed state is a safe rejection — the local session was terminated when
logout began, so nothing remains authenticated either way.

Parameters:
  - context: context.Context
  - state: string

Returns:
  - err: apperr CSRF rejection, or storage failures
*/
func (service *Service) CompleteFederatedLogout(context context.Context, state string) error {
	if state == "" {
		return apperr.CSRFRejected()
	}

	userID, err := service.stateStore.Consume(context, state)
	if err != nil {
		if apperr.IsAppError(err) {
			return apperr.CSRFRejected()
		}
		return fmt.Errorf("session_service_state_consume_failed: %w", err)
	}

	service.logger.InfoContext(context, "federated_logout_confirmed",
		slog.String("user_id", userID),
	)
	return nil
}

// # Federated Availability

// Availability describes whether the federated login option should be shown.
type Availability struct {
	// ShowButton is true iff the provider is configured for this deployment.
	ShowButton bool

	// LoginLink is the authorization redirect URL, empty when hidden.
	LoginLink string
}

// FederatedAvailability reports whether the federated login option should be
// displayed. A provider outage or misconfiguration yields a hidden button,
// never an error.
func (service *Service) FederatedAvailability(context context.Context) Availability {
	if !service.federated.Enabled() {
		return Availability{ShowButton: false}
	}
	return Availability{
		ShowButton: true,
		LoginLink:  service.federated.AuthorizationURL(),
	}
}

// # Maintenance

// RunTokenSweeper deletes expired token rows on a fixed interval until the
// context is cancelled. Expiry is already enforced lazily at validation time;
// the sweep keeps the table from accumulating dead rows.
func (service *Service) RunTokenSweeper(context context.Context) {
	ticker := time.NewTicker(TokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := service.tokenRepository.DeleteExpired(context); err != nil {
				service.logger.ErrorContext(context, "token_sweep_failed", slog.Any("error", err))
			}
		case <-context.Done():
			return
		}
	}
}
