// Package slack provides the Slack Web API client used to list conversations
// and stream their history, and the OAuth handshake that obtains its token.
package slack

import "strings"

// placeholderPrefix marks a credential that was never filled in, e.g.
// "<YOUR_CLIENT_ID>".
const placeholderPrefix = "<YOUR_"

// IsPlaceholder reports whether a configured credential is empty or still the
// template value.
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.HasPrefix(v, placeholderPrefix)
}

// RequireCredential returns a ConfigurationError when value is a placeholder.
func RequireCredential(field, value string) error {
	if IsPlaceholder(value) {
		return &ConfigurationError{Field: field, Reason: "is not set"}
	}
	return nil
}
