// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses. The
// envelope shapes are a published contract with the operations frontend:
//
//   - Success payloads are endpoint-specific and written as-is.
//   - 401 authentication failures: {"status":false,"message":...}
//   - 422 validation failures:     {"status":false,"errors":{field:msg}}
//   - 5xx faults:                  {"error":...} with the cause logged server-side only.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/ctxkey"
)

// FailureEnvelope is the JSON envelope for 4xx client failures.
type FailureEnvelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// FaultEnvelope is the JSON envelope for 5xx server faults. It carries a
// generic message only — diagnostics stay in the server log.
type FaultEnvelope struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with the endpoint-specific payload as-is.
func OK(writer http.ResponseWriter, payload interface{}) {
	JSON(writer, http.StatusOK, payload)
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client for security.
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", getRequestIDFromContext(request)),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", getRequestIDFromContext(request)),
			slog.Any("cause", appError.Cause),
		)
		JSON(writer, appError.HTTPStatus, FaultEnvelope{Error: appError.Message})
		return
	}

	// Validation failures carry field details instead of a flat message.
	envelope := FailureEnvelope{Status: false}
	if len(appError.Fields) > 0 {
		envelope.Errors = appError.Fields
	} else {
		envelope.Message = appError.Message
	}

	JSON(writer, appError.HTTPStatus, envelope)
}

// Redirect issues a 302 Found to the given location.
func Redirect(writer http.ResponseWriter, request *http.Request, location string) {
	http.Redirect(writer, request, location, http.StatusFound)
}

// getLoggerFromContext extracts the per-request logger.
func getLoggerFromContext(request *http.Request) *slog.Logger {
	if logger, ok := request.Context().Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// getRequestIDFromContext extracts the X-Request-ID for log correlation.
func getRequestIDFromContext(request *http.Request) string {
	if id, ok := request.Context().Value(ctxkey.KeyRequestID).(string); ok {
		return id
	}
	return ""
}
