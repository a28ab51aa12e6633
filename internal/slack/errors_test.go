package slack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"<YOUR_CLIENT_ID>", true},
		{" <YOUR_CLIENT_SECRET>", true},
		{"1234567890.1234567890", false},
		{"xoxp-abc", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPlaceholder(tt.value), "IsPlaceholder(%q)", tt.value)
	}
}

func TestRequireCredential(t *testing.T) {
	err := RequireCredential("slack.client_id", "<YOUR_CLIENT_ID>")

	var cfgErr *ConfigurationError
	if assert.ErrorAs(t, err, &cfgErr) {
		assert.Equal(t, "slack.client_id", cfgErr.Field)
	}
	assert.EqualError(t, err, "configuration error: slack.client_id is not set")

	assert.NoError(t, RequireCredential("slack.client_id", "123.456"))
}

func TestErrorMessages(t *testing.T) {
	assert.EqualError(t, &TransportError{StatusCode: 503, Status: "Service Unavailable"},
		"slack api http 503 Service Unavailable")
	assert.EqualError(t, &APIError{Code: "not_authed", Body: `{"ok":false,"error":"not_authed"}`},
		`slack api error: {"ok":false,"error":"not_authed"}`)
	assert.EqualError(t, &HandshakeError{Reason: "authorization denied", ProviderError: "access_denied"},
		"oauth handshake failed: authorization denied: access_denied")
}

func TestHandshakeError_Unwrap(t *testing.T) {
	inner := &APIError{Code: "invalid_code", Body: "{}"}
	err := error(&HandshakeError{Reason: "token exchange failed", Err: inner})

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Same(t, inner, apiErr)
}

func TestAPIError_UnwrapWithoutCode(t *testing.T) {
	assert.Nil(t, (&APIError{Body: "{}"}).Unwrap())
}
