package slack

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	slackapi "github.com/slack-go/slack"

	"github.com/chrisedwards/slack-history/internal/observability"
)

const (
	// DefaultAuthorizeURL is Slack's OAuth v2 authorization endpoint.
	DefaultAuthorizeURL = "https://slack.com/oauth/v2/authorize"

	// DefaultCallbackPort is the fixed local port the redirect is sent to.
	DefaultCallbackPort = 53682

	// CallbackPath is the path the local listener serves.
	CallbackPath = "/slack/oauth/callback"

	// DefaultScopes are requested both as bot and user scopes.
	DefaultScopes = "channels:read,groups:read,im:read,mpim:read,channels:history,groups:history,im:history,mpim:history"

	confirmationPage = "<html><body>OAuth complete. Return to the console.</body></html>"

	shutdownTimeout = 5 * time.Second
)

// HandshakeState is the position of a Handshake in its lifecycle.
type HandshakeState int

const (
	// StateIdle is a handshake that has not been run.
	StateIdle HandshakeState = iota
	// StateAwaitingRedirect is listening for the browser redirect.
	StateAwaitingRedirect
	// StateExchanging is trading the authorization code for a token.
	StateExchanging
	// StateCompleted returned a token.
	StateCompleted
	// StateFailed returned an error.
	StateFailed
)

// String returns the string representation of the state.
func (s HandshakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRedirect:
		return "awaiting-redirect"
	case StateExchanging:
		return "exchanging"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OAuthConfig holds the app credentials and endpoints of the handshake.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       string
	// Port is the local callback port. Zero picks a free port.
	Port         int
	AuthorizeURL string
	TokenURL     string
}

// DefaultOAuthConfig returns a config pointing at slack.com with the default
// scopes and callback port.
func DefaultOAuthConfig(clientID, clientSecret string) OAuthConfig {
	return OAuthConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       DefaultScopes,
		Port:         DefaultCallbackPort,
		AuthorizeURL: DefaultAuthorizeURL,
		TokenURL:     DefaultAPIURL + "/oauth.v2.access",
	}
}

// Handshake runs one interactive OAuth v2 authorization-code flow.
// A Handshake is single use: every Run needs a fresh Handshake, which gets a
// fresh state token and listener.
type Handshake struct {
	cfg         OAuthConfig
	httpClient  *http.Client
	logger      *slog.Logger
	out         io.Writer
	metrics     *observability.Metrics
	openBrowser func(url string) error
	newState    func() string

	mu      sync.Mutex
	state   HandshakeState
	started bool
}

// NewHandshake creates an idle handshake for cfg.
func NewHandshake(cfg OAuthConfig) *Handshake {
	if cfg.Scopes == "" {
		cfg.Scopes = DefaultScopes
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultAPIURL + "/oauth.v2.access"
	}
	return &Handshake{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:         io.Discard,
		metrics:     observability.NoopMetrics(),
		openBrowser: browser.OpenURL,
		newState:    newStateToken,
	}
}

// WithHTTPClient sets the client used for the token exchange.
func (h *Handshake) WithHTTPClient(client *http.Client) *Handshake {
	h.httpClient = client
	return h
}

// WithLogger sets the logger.
func (h *Handshake) WithLogger(logger *slog.Logger) *Handshake {
	h.logger = logger
	return h
}

// WithOutput sets where the authorization URL and progress are printed.
func (h *Handshake) WithOutput(w io.Writer) *Handshake {
	h.out = w
	return h
}

// WithBrowser replaces the function used to open the authorization URL.
func (h *Handshake) WithBrowser(open func(url string) error) *Handshake {
	h.openBrowser = open
	return h
}

// WithMetrics sets the metrics recorder.
func (h *Handshake) WithMetrics(m *observability.Metrics) *Handshake {
	h.metrics = m
	return h
}

// State returns the current lifecycle state.
func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handshake) setState(s HandshakeState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// AuthorizationURL builds the Slack authorize URL. The same scopes are
// requested as bot scopes and user scopes.
func (h *Handshake) AuthorizationURL(redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", h.cfg.ClientID)
	params.Set("scope", h.cfg.Scopes)
	params.Set("user_scope", h.cfg.Scopes)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return h.cfg.AuthorizeURL + "?" + params.Encode()
}

// Run performs the handshake and returns the access token. It blocks until
// the redirect arrives, ctx is canceled, or the flow fails. The local
// listener is released before Run returns on every path.
func (h *Handshake) Run(ctx context.Context) (string, error) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return "", ErrHandshakeUsed
	}
	h.started = true
	h.mu.Unlock()

	token, err := h.run(ctx)
	if err != nil {
		h.setState(StateFailed)
		h.metrics.RecordHandshake(ctx, StateFailed.String())
		if IsCanceled(err) {
			h.logger.Info("oauth handshake canceled")
		} else {
			h.logger.Warn("oauth handshake failed", "error", err)
		}
		return "", err
	}

	h.setState(StateCompleted)
	h.metrics.RecordHandshake(ctx, StateCompleted.String())
	h.logger.Info("oauth handshake completed")
	return token, nil
}

func (h *Handshake) run(ctx context.Context) (string, error) {
	if err := RequireCredential("slack.client_id", h.cfg.ClientID); err != nil {
		return "", err
	}
	if err := RequireCredential("slack.client_secret", h.cfg.ClientSecret); err != nil {
		return "", err
	}

	state := h.newState()

	ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(h.cfg.Port)))
	if err != nil {
		return "", fmt.Errorf("starting oauth callback listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	redirectURI := fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("oauth callback listener stopped", "error", err)
		}
	}()
	stop := sync.OnceFunc(func() {
		h.stopListener(srv)
		_ = ln.Close()
	})
	defer stop()

	h.setState(StateAwaitingRedirect)
	h.logger.Info("oauth callback listener started", "redirect_uri", redirectURI)

	authURL := h.AuthorizationURL(redirectURI, state)
	fmt.Fprintf(h.out, "Opening browser for OAuth...\nIf it does not open, visit:\n  %s\n", authURL)
	if err := h.openBrowser(authURL); err != nil {
		h.logger.Warn("could not open browser", "error", err)
	}
	fmt.Fprintln(h.out, "Waiting for redirect...")

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return "", canceled(ctx.Err())
	}
	stop()

	if res.providerError != "" {
		return "", &HandshakeError{Reason: "authorization denied", ProviderError: res.providerError}
	}
	if subtle.ConstantTimeCompare([]byte(res.state), []byte(state)) != 1 {
		return "", &HandshakeError{Reason: "state mismatch"}
	}
	if res.code == "" {
		return "", &HandshakeError{Reason: "no code returned"}
	}

	h.setState(StateExchanging)
	fmt.Fprintln(h.out, "Exchanging code for token...")

	token, err := h.exchange(ctx, res.code, redirectURI)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", canceled(ctxErr)
		}
		return "", &HandshakeError{Reason: "token exchange failed", Err: err}
	}
	return token, nil
}

// stopListener closes the listener and waits briefly for the confirmation
// page to be flushed.
func (h *Handshake) stopListener(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		h.logger.Warn("oauth callback listener shutdown", "error", err)
		_ = srv.Close()
	}
}

type callbackResult struct {
	code          string
	state         string
	providerError string
}

// callbackHandler accepts exactly one redirect on CallbackPath.
func callbackHandler(results chan<- callbackResult) http.Handler {
	var once sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		handled := false
		once.Do(func() {
			handled = true
			q := r.URL.Query()

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Length", strconv.Itoa(len(confirmationPage)))
			_, _ = io.WriteString(w, confirmationPage)

			results <- callbackResult{
				code:          q.Get("code"),
				state:         q.Get("state"),
				providerError: q.Get("error"),
			}
		})
		if !handled {
			http.Error(w, "authorization already handled", http.StatusGone)
		}
	})
	return mux
}

// exchange trades the authorization code for an access token.
func (h *Handshake) exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", h.cfg.ClientID)
	form.Set("client_secret", h.cfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling oauth.v2.access: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newTransportError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading oauth.v2.access response: %w", err)
	}

	var out slackapi.OAuthV2Response
	if err := decodeEnvelope(body, &out); err != nil {
		return "", err
	}
	return SelectToken(&out)
}

// SelectToken prefers the user token under authed_user and falls back to the
// top-level token. When both are set the user token wins.
func SelectToken(resp *slackapi.OAuthV2Response) (string, error) {
	if resp.AuthedUser.AccessToken != "" {
		return resp.AuthedUser.AccessToken, nil
	}
	if resp.AccessToken != "" {
		return resp.AccessToken, nil
	}
	return "", errors.New("token exchange returned no access token")
}

func newStateToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
