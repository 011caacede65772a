// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

/*
HTTP delivery layer for the session core.

# Architecture

The handler acts as a thin mediation layer between the web and the session
service:
  - Protocol: Standard RESTful JSON interface.
  - Security: Bearer-token orchestration; logout requires authentication.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package session

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/ctxutil"
	"github.com/datomika/opsgate/internal/platform/middleware"
	requestutil "github.com/datomika/opsgate/internal/platform/request"
	"github.com/datomika/opsgate/internal/platform/respond"
	"github.com/datomika/opsgate/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the session HTTP endpoints.
//
// # Scope
//
// Login, logout, federated-login availability, and the federated logout
// callback. Everything else (account management, resource pages) lives in
// other services.
type Handler struct {
	sessionService *Service
	loginPageURL   string
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, loginPageURL string) *Handler {
	return &Handler{sessionService: service, loginPageURL: loginPageURL}
}

// Routes returns a [chi.Router] configured with session-specific routes.
//
// # Endpoints
//   - POST /login                  : Authenticates and returns a bearer token.
//   - POST /logout                 : Revokes the session, returns a redirect link.
//   - GET  /sudir-availability     : Whether the federated login option is shown.
//   - GET  /sudir-logout-callback  : CSRF-verified provider logout callback.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Get("/sudir-availability", handler.sudirAvailability)
	router.Get("/sudir-logout-callback", handler.sudirLogoutCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*
Login authenticates a user and establishes a session.

POST /login

Description: Validates input, verifies credentials, rotates the bearer token
and populates the session snapshot cache.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {"status":true,"token":"<64-char-opaque>","rating":bool}
  - 401: {"status":false,"message":...} — same message for unknown email and wrong password
  - 422: {"status":false,"errors":{field:msg}} — malformed input, never a 401
  - 500: {"error":...} on unexpected fault
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.sessionService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldStatus: true,
		FieldToken:  result.Token,
		FieldRating: result.RatingAccess,
	})
}

/*
Logout terminates the current session.

POST /logout

Description: Revokes the bearer token, invalidates the session snapshot, and
returns the redirect target: the federated provider's logout endpoint for
federated sessions, the local login page otherwise.

Response:
  - 200: {"message":...,"redirectLink":...}
  - 401: {"status":false,"message":...} when no valid bearer token is presented
  - 500: {"error":...} on unexpected fault
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.sessionService.Logout(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage:      result.Message,
		FieldRedirectLink: result.RedirectLink,
	})
}

/*
SudirAvailability reports whether the federated login option should be shown.

GET /sudir-availability

Description: Delegates to the federated identity adapter. A provider outage
or misconfiguration hides the button; it is never surfaced as a failure.

Response:
  - 200: {"status":true,"showSudirButton":bool,"sudirLoginLink":string|null}
*/
func (handler *Handler) sudirAvailability(writer http.ResponseWriter, request *http.Request) {
	availability := handler.sessionService.FederatedAvailability(request.Context())

	// The login link is null (not "") when the button is hidden.
	var loginLink *string
	if availability.ShowButton {
		loginLink = &availability.LoginLink
	}

	respond.OK(writer, map[string]any{
		FieldStatus:          true,
		FieldShowSudirButton: availability.ShowButton,
		FieldSudirLoginLink:  loginLink,
	})
}

/*
SudirLogoutCallback completes a federated logout round-trip.

GET /sudir-logout-callback?state=...

Description: Verifies the single-use CSRF state nonce. The response is always
a redirect to the local login page — with an error flag appended when
verification fails. The local session was already terminated when the logout
began, so a rejected callback never leaves a live session behind.

Response:
  - 302: Location: <login page>[?logoutError=1]
*/
func (handler *Handler) sudirLogoutCallback(writer http.ResponseWriter, request *http.Request) {
	state := request.URL.Query().Get(FieldState)

	if err := handler.sessionService.CompleteFederatedLogout(request.Context(), state); err != nil {
		// The redirect is the same for a CSRF rejection and a backend fault;
		// only the latter is worth a diagnostic log line.
		if !apperr.IsAppError(err) {
			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(),
				"federated_logout_callback_failed", slog.Any("error", err))
		}
		respond.Redirect(writer, request, appendQueryFlag(handler.loginPageURL, "logoutError", "1"))
		return
	}

	respond.Redirect(writer, request, handler.loginPageURL)
}

// appendQueryFlag appends key=value to a URL, honoring an existing query string.
func appendQueryFlag(rawURL, key, value string) string {
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + key + "=" + value
}
