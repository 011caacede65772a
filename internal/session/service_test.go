// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/sec"
	"github.com/datomika/opsgate/internal/session"
	"github.com/datomika/opsgate/pkg/uuidv7"
)

// # In-Memory Fakes

type fakeUserRepository struct {
	byID    map[string]*session.User
	byEmail map[string]*session.User
}

func newFakeUserRepository(users ...*session.User) *fakeUserRepository {
	repo := &fakeUserRepository{
		byID:    make(map[string]*session.User),
		byEmail: make(map[string]*session.User),
	}
	for _, user := range users {
		repo.byID[user.ID] = user
		repo.byEmail[user.Email] = user
	}
	return repo
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*session.User, error) {
	if user, ok := repo.byID[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*session.User, error) {
	if user, ok := repo.byEmail[email]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

type fakeTokenRepository struct {
	byHash map[string]*session.Token
}

func newFakeTokenRepository() *fakeTokenRepository {
	return &fakeTokenRepository{byHash: make(map[string]*session.Token)}
}

func (repo *fakeTokenRepository) Replace(_ context.Context, token *session.Token) error {
	for hash, existing := range repo.byHash {
		if existing.UserID == token.UserID {
			delete(repo.byHash, hash)
		}
	}
	repo.byHash[token.TokenHash] = token
	return nil
}

func (repo *fakeTokenRepository) FindByHash(_ context.Context, tokenHash string) (*session.Token, error) {
	token, ok := repo.byHash[tokenHash]
	if !ok || token.Expired(time.Now()) {
		return nil, apperr.NotFound("Token")
	}
	return token, nil
}

func (repo *fakeTokenRepository) DeleteByHash(_ context.Context, tokenHash string) error {
	delete(repo.byHash, tokenHash)
	return nil
}

func (repo *fakeTokenRepository) DeleteExpired(_ context.Context) error {
	for hash, token := range repo.byHash {
		if token.Expired(time.Now()) {
			delete(repo.byHash, hash)
		}
	}
	return nil
}

func (repo *fakeTokenRepository) countForUser(userID string) int {
	count := 0
	for _, token := range repo.byHash {
		if token.UserID == userID {
			count++
		}
	}
	return count
}

type fakeSnapshotCache struct {
	byToken map[string]session.Snapshot
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{byToken: make(map[string]session.Snapshot)}
}

func (cache *fakeSnapshotCache) Put(_ context.Context, token string, snapshot session.Snapshot) error {
	cache.byToken[token] = snapshot
	return nil
}

func (cache *fakeSnapshotCache) Get(_ context.Context, token string) (*session.Snapshot, error) {
	snapshot, ok := cache.byToken[token]
	if !ok {
		return nil, apperr.NotFound("Session snapshot")
	}
	return &snapshot, nil
}

func (cache *fakeSnapshotCache) Invalidate(_ context.Context, token string) error {
	delete(cache.byToken, token)
	return nil
}

func (cache *fakeSnapshotCache) Touch(_ context.Context, token string, at time.Time) error {
	if snapshot, ok := cache.byToken[token]; ok {
		snapshot.LastActivity = at
		cache.byToken[token] = snapshot
	}
	return nil
}

type fakeStateStore struct {
	byNonce map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{byNonce: make(map[string]string)}
}

func (store *fakeStateStore) Create(_ context.Context, nonce, userID string, _ time.Duration) error {
	store.byNonce[nonce] = userID
	return nil
}

func (store *fakeStateStore) Consume(_ context.Context, nonce string) (string, error) {
	userID, ok := store.byNonce[nonce]
	if !ok {
		return "", apperr.NotFound("Logout state")
	}
	delete(store.byNonce, nonce)
	return userID, nil
}

type fakeResolver struct {
	allowed map[string][]string
	err     error
}

func (resolver *fakeResolver) AllowedObjectIDs(_ context.Context, userID string) ([]string, error) {
	if resolver.err != nil {
		return nil, resolver.err
	}
	if ids, ok := resolver.allowed[userID]; ok {
		return ids, nil
	}
	return []string{}, nil
}

type fakeProvider struct {
	enabled bool
}

func (provider *fakeProvider) Enabled() bool { return provider.enabled }

func (provider *fakeProvider) AuthorizationURL() string {
	if !provider.enabled {
		return ""
	}
	return "https://sso.example.test/oauth/authorize?client_id=opsgate-web"
}

func (provider *fakeProvider) LogoutURL(idToken, state string) string {
	if !provider.enabled {
		return ""
	}
	return "https://sso.example.test/oauth/logout?state=" + state
}

// # Test Fixture

type fixture struct {
	service   *session.Service
	users     *fakeUserRepository
	tokens    *fakeTokenRepository
	snapshots *fakeSnapshotCache
	states    *fakeStateStore
	resolver  *fakeResolver
	provider  *fakeProvider
}

const (
	testLoginPage = "/login"
	testPassword  = "correct horse battery staple"
)

func newFixture(t *testing.T, users ...*session.User) *fixture {
	t.Helper()

	f := &fixture{
		users:     newFakeUserRepository(users...),
		tokens:    newFakeTokenRepository(),
		snapshots: newFakeSnapshotCache(),
		states:    newFakeStateStore(),
		resolver:  &fakeResolver{allowed: make(map[string][]string)},
		provider:  &fakeProvider{enabled: true},
	}
	f.service = session.NewService(
		f.users, f.tokens, f.snapshots, f.states, f.resolver, f.provider,
		testLoginPage,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func newTestUser(t *testing.T, email string) *session.User {
	t.Helper()

	hash, err := sec.HashPassword(testPassword)
	require.NoError(t, err)

	return &session.User{
		ID:           uuidv7.New(),
		Email:        email,
		PasswordHash: hash,
		RatingAccess: true,
	}
}

// # Login

/*
TestLogin_Success covers the happy path: a valid credential pair yields an
opaque token, the rating flag, and a fully populated session snapshot.
*/
func TestLogin_Success(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)
	f.resolver.allowed[user.ID] = []string{"obj-1", "obj-2"}

	result, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	// Opaque hex token, never a structured credential.
	assert.Len(t, result.Token, 2*session.TokenByteLength)
	assert.True(t, result.RatingAccess)

	snapshot, err := f.snapshots.Get(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"obj-1", "obj-2"}, snapshot.AllowedObjectIDs)
	assert.Equal(t, user.ID, snapshot.ActivatedUserID)
	assert.True(t, snapshot.RatingAccess)
	assert.False(t, snapshot.LastActivity.IsZero())
}

/*
TestLogin_InvalidCredentials verifies the enumeration guard: an unknown email
and a wrong password fail with byte-identical messages.
*/
func TestLogin_InvalidCredentials(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)

	_, unknownErr := f.service.Login(context.Background(), session.LoginInput{
		Email:    "nobody@example.test",
		Password: testPassword,
	})
	_, wrongErr := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: "wrong password",
	})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	for _, err := range []error{unknownErr, wrongErr} {
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "UNAUTHORIZED", ae.Code)
	}
}

/*
TestLogin_RotatesToken verifies the single-session invariant: a second login
replaces the first token, and the replaced token stops validating.
*/
func TestLogin_RotatesToken(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)

	input := session.LoginInput{Email: user.Email, Password: testPassword}

	first, err := f.service.Login(context.Background(), input)
	require.NoError(t, err)

	second, err := f.service.Login(context.Background(), input)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	assert.Equal(t, 1, f.tokens.countForUser(user.ID))

	_, err = f.service.ValidateBearer(context.Background(), first.Token)
	require.Error(t, err)

	claims, err := f.service.ValidateBearer(context.Background(), second.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

/*
TestLogin_RightsFailureRollsBack verifies that a rights-resolution failure
leaves no half-authenticated state: the freshly issued token is revoked.
*/
func TestLogin_RightsFailureRollsBack(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)
	f.resolver.err = apperr.ServiceUnavailable("rights backend down")

	_, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.Error(t, err)

	assert.Equal(t, 0, f.tokens.countForUser(user.ID))
	assert.Empty(t, f.snapshots.byToken)
}

// # Bearer Validation

/*
TestValidateBearer covers token resolution: valid tokens produce claims,
unknown and expired ones are rejected the same way.
*/
func TestValidateBearer(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	user.IsAdmin = true
	f := newFixture(t, user)

	result, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	t.Run("valid_token", func(t *testing.T) {
		claims, err := f.service.ValidateBearer(context.Background(), result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, result.Token, claims.Token)
		assert.True(t, claims.RatingAccess)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("unknown_token", func(t *testing.T) {
		_, err := f.service.ValidateBearer(context.Background(), "deadbeef")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("expired_token", func(t *testing.T) {
		plaintext, err := sec.GenerateSecureToken(session.TokenByteLength)
		require.NoError(t, err)

		f.tokens.byHash[sec.HashToken(plaintext)] = &session.Token{
			ID:        uuidv7.New(),
			UserID:    user.ID,
			TokenHash: sec.HashToken(plaintext),
			CreatedAt: time.Now().Add(-25 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}

		_, err = f.service.ValidateBearer(context.Background(), plaintext)
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("touch_refreshes_last_activity", func(t *testing.T) {
		before, err := f.snapshots.Get(context.Background(), result.Token)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		_, err = f.service.ValidateBearer(context.Background(), result.Token)
		require.NoError(t, err)

		after, err := f.snapshots.Get(context.Background(), result.Token)
		require.NoError(t, err)
		assert.True(t, after.LastActivity.After(before.LastActivity))
	})
}

// # Logout

/*
TestLogout_Local verifies local-session logout: the token and the snapshot
are gone, and the redirect points at the local login page.
*/
func TestLogout_Local(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)

	result, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	claims, err := f.service.ValidateBearer(context.Background(), result.Token)
	require.NoError(t, err)

	logout, err := f.service.Logout(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, testLoginPage, logout.RedirectLink)
	assert.NotEmpty(t, logout.Message)

	_, err = f.service.ValidateBearer(context.Background(), result.Token)
	require.Error(t, err)
	assert.Empty(t, f.snapshots.byToken)
}

/*
TestLogout_Federated verifies that a federated session's logout hands back
the provider logout URL carrying a stored single-use state nonce.
*/
func TestLogout_Federated(t *testing.T) {
	user := newTestUser(t, "sso-op@example.test")
	user.FederatedIDToken = "header.payload.signature"
	f := newFixture(t, user)

	result, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	claims, err := f.service.ValidateBearer(context.Background(), result.Token)
	require.NoError(t, err)

	logout, err := f.service.Logout(context.Background(), claims)
	require.NoError(t, err)
	assert.Contains(t, logout.RedirectLink, "https://sso.example.test/oauth/logout?state=")

	// Exactly one nonce was parked for the callback.
	require.Len(t, f.states.byNonce, 1)
	for _, ownerID := range f.states.byNonce {
		assert.Equal(t, user.ID, ownerID)
	}
}

/*
TestLogout_FederatedProviderDisabled verifies the degradation path: the local
session still ends, and the redirect falls back to the local login page.
*/
func TestLogout_FederatedProviderDisabled(t *testing.T) {
	user := newTestUser(t, "sso-op@example.test")
	user.FederatedIDToken = "header.payload.signature"
	f := newFixture(t, user)
	f.provider.enabled = false

	result, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	claims, err := f.service.ValidateBearer(context.Background(), result.Token)
	require.NoError(t, err)

	logout, err := f.service.Logout(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, testLoginPage, logout.RedirectLink)

	_, err = f.service.ValidateBearer(context.Background(), result.Token)
	require.Error(t, err)
	assert.Empty(t, f.states.byNonce)
}

// # Federated Logout Callback

/*
TestCompleteFederatedLogout verifies the single-use CSRF nonce: one
successful consumption, and every replay or absent state rejected.
*/
func TestCompleteFederatedLogout(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.states.Create(context.Background(), "nonce-ok", "user-1", time.Minute))

	t.Run("empty_state", func(t *testing.T) {
		err := f.service.CompleteFederatedLogout(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, "CSRF_STATE_MISMATCH", apperr.As(err).Code)
	})

	t.Run("unknown_state", func(t *testing.T) {
		err := f.service.CompleteFederatedLogout(context.Background(), "never-issued")
		require.Error(t, err)
		assert.Equal(t, "CSRF_STATE_MISMATCH", apperr.As(err).Code)
	})

	t.Run("valid_state_consumed_once", func(t *testing.T) {
		require.NoError(t, f.service.CompleteFederatedLogout(context.Background(), "nonce-ok"))

		// The same correct state never verifies twice.
		err := f.service.CompleteFederatedLogout(context.Background(), "nonce-ok")
		require.Error(t, err)
		assert.Equal(t, "CSRF_STATE_MISMATCH", apperr.As(err).Code)
	})
}

// # Availability

/*
TestFederatedAvailability checks the availability projection for both
provider states.
*/
func TestFederatedAvailability(t *testing.T) {
	f := newFixture(t)

	t.Run("enabled", func(t *testing.T) {
		availability := f.service.FederatedAvailability(context.Background())
		assert.True(t, availability.ShowButton)
		assert.NotEmpty(t, availability.LoginLink)
	})

	t.Run("disabled", func(t *testing.T) {
		f.provider.enabled = false
		availability := f.service.FederatedAvailability(context.Background())
		assert.False(t, availability.ShowButton)
		assert.Empty(t, availability.LoginLink)
	})
}
