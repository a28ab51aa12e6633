package slack

import (
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

var (
	// ErrCanceled is returned when an operation observes cancellation between
	// pages or while waiting out a rate limit. It always wraps the context error.
	ErrCanceled = errors.New("operation canceled")

	// ErrHandshakeUsed is returned when Run is called on a handshake that has
	// already started.
	ErrHandshakeUsed = errors.New("oauth handshake already used")

	// ErrCursorRepeated is returned when the server hands back a cursor that
	// was already sent.
	ErrCursorRepeated = errors.New("pagination cursor repeated")
)

// ConfigurationError reports a missing or placeholder credential.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// TransportError is a non-2xx, non-429 HTTP response. It is never retried.
type TransportError struct {
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("slack api http %d %s", e.StatusCode, e.Status)
}

// APIError is an HTTP success whose envelope reports ok=false.
// Body holds the raw response for diagnosis.
type APIError struct {
	Code string
	Body string
}

func (e *APIError) Error() string {
	return "slack api error: " + e.Body
}

// Unwrap exposes the Slack error code as a slack-go error response so callers
// can match on it the same way they match slack-go client errors.
func (e *APIError) Unwrap() error {
	if e.Code == "" {
		return nil
	}
	return slackapi.SlackErrorResponse{Err: e.Code}
}

// HandshakeError terminates an OAuth handshake without a token.
type HandshakeError struct {
	Reason string
	// ProviderError is the error query parameter sent back by Slack, if any.
	ProviderError string
	Err           error
}

func (e *HandshakeError) Error() string {
	msg := "oauth handshake failed: " + e.Reason
	if e.ProviderError != "" {
		msg += ": " + e.ProviderError
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// canceled wraps a context error so that both errors.Is(err, ErrCanceled) and
// errors.Is(err, context.Canceled) hold.
func canceled(ctxErr error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
}

// IsCanceled reports whether err is an expected cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
