// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

/*
Package federated encapsulates all interaction with the external federated
identity provider (the SUDIR single sign-on service).

# Architecture

The adapter is pure URL assembly: the federated flow is redirect-based, so no
server-to-server call is ever made during request handling. Configuration is
deployment-scoped — federated login is either available for the whole domain
or not at all.

# Degradation

A disabled or misconfigured provider produces a permanently-disabled adapter.
It never returns errors to callers: the login page simply falls back to the
local credential form.
*/
package federated

import (
	"log/slog"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Settings carries the deployment-scoped provider configuration.
type Settings struct {
	// Enabled turns the federated option on for this deployment.
	Enabled bool

	// ClientID is the OAuth client identifier registered with the provider.
	ClientID string

	// AuthURL is the provider's authorization endpoint.
	AuthURL string

	// LogoutURL is the provider's session-termination endpoint.
	LogoutURL string

	// RedirectURL is this application's callback base
	// (post-logout redirects land on its /sudir-logout-callback path).
	RedirectURL string
}

// Adapter builds the provider-facing redirect URLs.
//
// # Concurrency
//
// Adapter is immutable after construction and safe for concurrent use.
type Adapter struct {
	enabled     bool
	oauthConfig oauth2.Config
	logoutURL   *url.URL
	redirectURL string
	logger      *slog.Logger
}

// New validates the settings and constructs the adapter.
//
// Any missing or malformed value degrades the adapter to disabled (with a
// warning log) instead of failing startup: login must always be able to fall
// back to the local form.
func New(settings Settings, logger *slog.Logger) *Adapter {
	adapter := &Adapter{logger: logger}

	if !settings.Enabled {
		return adapter
	}

	if settings.ClientID == "" {
		logger.Warn("federated_provider_disabled", slog.String("reason", "missing client id"))
		return adapter
	}

	for name, raw := range map[string]string{
		"auth_url":     settings.AuthURL,
		"logout_url":   settings.LogoutURL,
		"redirect_url": settings.RedirectURL,
	} {
		if parsed, err := url.Parse(raw); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			logger.Warn("federated_provider_disabled",
				slog.String("reason", "malformed URL"),
				slog.String("setting", name),
			)
			return adapter
		}
	}

	// Parse errors are ruled out above.
	adapter.logoutURL, _ = url.Parse(settings.LogoutURL)
	adapter.redirectURL = settings.RedirectURL
	adapter.oauthConfig = oauth2.Config{
		ClientID:    settings.ClientID,
		RedirectURL: settings.RedirectURL,
		Scopes:      []string{"openid", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL: settings.AuthURL,
		},
	}
	adapter.enabled = true

	return adapter
}

// Enabled reports whether federated login is configured for this deployment.
func (adapter *Adapter) Enabled() bool {
	return adapter.enabled
}

// AuthorizationURL returns the redirect URL that starts a federated login.
//
// It is a pure function of configuration. The login round-trip's own CSRF
// state is managed by the frontend shell that performs the redirect, so no
// state parameter is baked in here.
func (adapter *Adapter) AuthorizationURL() string {
	if !adapter.enabled {
		return ""
	}
	return adapter.oauthConfig.AuthCodeURL("")
}

// LogoutURL returns the provider logout URL for one session.
//
// The id_token issued to this session is embedded as id_token_hint so the
// provider can cleanly end its own session, and the single-use CSRF state
// nonce rides along to be verified on the callback.
func (adapter *Adapter) LogoutURL(idToken, state string) string {
	if !adapter.enabled {
		return ""
	}

	logoutURL := *adapter.logoutURL
	query := logoutURL.Query()

	if adapter.wellFormedIDToken(idToken) {
		query.Set("id_token_hint", idToken)
	}
	query.Set("state", state)
	query.Set("post_logout_redirect_uri", adapter.redirectURL)

	logoutURL.RawQuery = query.Encode()
	return logoutURL.String()
}

// wellFormedIDToken checks that the stored id_token still parses as a JWT
// before it is embedded in a redirect. The signature is NOT verified — the
// provider will do that; this only keeps garbage out of the hint parameter.
func (adapter *Adapter) wellFormedIDToken(idToken string) bool {
	if idToken == "" {
		return false
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		adapter.logger.Warn("federated_id_token_malformed", slog.Any("error", err))
		return false
	}

	if subject, err := token.Claims.GetSubject(); err == nil && subject != "" {
		adapter.logger.Debug("federated_logout_hint_attached", slog.String("provider_subject", subject))
	}

	return true
}
