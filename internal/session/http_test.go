// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datomika/opsgate/internal/platform/middleware"
	"github.com/datomika/opsgate/internal/session"
)

// newTestRouter assembles the minimal production routing for the session
// endpoints: bearer authentication in front of the handler routes.
func newTestRouter(f *fixture) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(f.service))
	router.Mount("/", session.NewHandler(f.service, testLoginPage).Routes())
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

// # POST /login

/*
TestHTTPLogin covers the login endpoint contract: 200 with token and rating,
401 with a uniform message for bad credentials, and 422 for malformed input.
*/
func TestHTTPLogin(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)
	router := newTestRouter(f)

	t.Run("success", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login",
			`{"email":"op@example.test","password":"`+testPassword+`"}`, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["status"])
		assert.Equal(t, true, payload["rating"])
		assert.Len(t, payload["token"], 2*session.TokenByteLength)
	})

	t.Run("wrong_password", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login",
			`{"email":"op@example.test","password":"nope"}`, "")

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, false, payload["status"])
		assert.Equal(t, "Invalid login credentials", payload["message"])
	})

	t.Run("unknown_email_same_message", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login",
			`{"email":"ghost@example.test","password":"nope"}`, "")

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, "Invalid login credentials", payload["message"])
	})

	t.Run("missing_fields", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login", `{"email":"","password":""}`, "")

		// Malformed input is a validation failure, never a credential failure.
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, false, payload["status"])

		errs, ok := payload["errors"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
	})

	t.Run("invalid_email_format", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login",
			`{"email":"not-an-email","password":"x"}`, "")

		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		errs, ok := decodeBody(t, recorder)["errors"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, errs, "email")
	})

	t.Run("malformed_json", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/login", `{"email":`, "")
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

// # POST /logout

/*
TestHTTPLogout covers the logout endpoint: authenticated requests get the
message and redirect link; anonymous and stale-token requests get 401.
*/
func TestHTTPLogout(t *testing.T) {
	user := newTestUser(t, "op@example.test")
	f := newFixture(t, user)
	router := newTestRouter(f)

	login, err := f.service.Login(context.Background(), session.LoginInput{
		Email:    user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/logout", "", "")
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("authenticated", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/logout", "", login.Token)

		require.Equal(t, http.StatusOK, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, "Logged out", payload["message"])
		assert.Equal(t, testLoginPage, payload["redirectLink"])
	})

	t.Run("revoked_token_rejected", func(t *testing.T) {
		// The token used above was revoked by the logout itself.
		recorder := doJSON(t, router, http.MethodPost, "/logout", "", login.Token)
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

// # GET /sudir-availability

/*
TestHTTPSudirAvailability checks both projection shapes: a visible button
with a link, and a hidden button with a null link.
*/
func TestHTTPSudirAvailability(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	t.Run("provider_enabled", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/sudir-availability", "", "")

		require.Equal(t, http.StatusOK, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["status"])
		assert.Equal(t, true, payload["showSudirButton"])
		assert.NotEmpty(t, payload["sudirLoginLink"])
	})

	t.Run("provider_disabled", func(t *testing.T) {
		f.provider.enabled = false
		recorder := doJSON(t, router, http.MethodGet, "/sudir-availability", "", "")

		require.Equal(t, http.StatusOK, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["status"])
		assert.Equal(t, false, payload["showSudirButton"])
		assert.Nil(t, payload["sudirLoginLink"])
	})
}

// # GET /sudir-logout-callback

/*
TestHTTPSudirLogoutCallback verifies the callback contract: always a redirect
to the login page, with the error flag only on CSRF rejection, and nonce
consumption being single-use.
*/
func TestHTTPSudirLogoutCallback(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	require.NoError(t, f.states.Create(context.Background(), "nonce-1", "user-1", time.Minute))

	t.Run("valid_state", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/sudir-logout-callback?state=nonce-1", "", "")

		require.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, testLoginPage, recorder.Header().Get("Location"))
	})

	t.Run("replayed_state", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/sudir-logout-callback?state=nonce-1", "", "")

		require.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, testLoginPage+"?logoutError=1", recorder.Header().Get("Location"))
	})

	t.Run("missing_state", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/sudir-logout-callback", "", "")

		require.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, testLoginPage+"?logoutError=1", recorder.Header().Get("Location"))
	})

	t.Run("forged_state", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/sudir-logout-callback?state=forged", "", "")

		require.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, testLoginPage+"?logoutError=1", recorder.Header().Get("Location"))
	})
}
