// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "email", "ops@datomika.io", false},
		{"empty_string", "email", "", true},
		{"whitespace_only", "email", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, 422, ae.HTTPStatus)
				assert.Contains(t, ae.Fields, tt.field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "a@x.com", true},
		{"valid_with_plus", "ops+login@datomika.io", true},
		{"missing_at", "a.x.com", false},
		{"missing_domain", "a@", false},
		{"spaces_inside", "a b@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_EmailSkipsEmpty ensures an empty email does not double-report:
Required owns the "missing" message.
*/
func TestValidator_EmailSkipsEmpty(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "").Email("email", "")

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "This field is required", ae.Fields["email"])
}

/*
TestValidator_MinLen verifies the minimum-length rule and that the first
failure per field wins.
*/
func TestValidator_MinLen(t *testing.T) {
	v := &validate.Validator{}
	v.MinLen("password", "short", 8)

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Minimum 8 characters", ae.Fields["password"])
}

/*
TestValidator_MultipleFields collects independent failures per field.
*/
func TestValidator_MultipleFields(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "").
		Required("password", "")

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Fields, 2)
	assert.Contains(t, ae.Fields, "email")
	assert.Contains(t, ae.Fields, "password")
}
