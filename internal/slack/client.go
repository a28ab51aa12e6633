package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/chrisedwards/slack-history/internal/observability"
)

const (
	// DefaultAPIURL is the base URL for the Slack Web API.
	DefaultAPIURL = "https://slack.com/api"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// PageSize is the limit sent with every paginated request.
	PageSize = 200
)

// Client is a rate-limit-aware Slack Web API client bound to one access token.
// The token is captured at construction; rotating it means building a new Client.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	retry      *RetryPolicy
	logger     *slog.Logger
	notices    io.Writer
	metrics    *observability.Metrics
}

// NewClient creates a new Web API client with the given access token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    DefaultAPIURL,
		retry:      DefaultRetryPolicy(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		notices:    io.Discard,
		metrics:    observability.NoopMetrics(),
	}
}

func (c *Client) clone() *Client {
	cp := *c
	return &cp
}

// WithBaseURL returns a new Client with the specified base URL.
// Useful for testing with mock servers.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := c.clone()
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return cp
}

// WithHTTPClient returns a new Client with the specified HTTP client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	cp := c.clone()
	cp.httpClient = client
	return cp
}

// WithRetryPolicy returns a new Client that waits out 429s using policy.
func (c *Client) WithRetryPolicy(policy *RetryPolicy) *Client {
	cp := c.clone()
	cp.retry = policy
	return cp
}

// WithLogger returns a new Client that logs to logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	cp := c.clone()
	cp.logger = logger
	return cp
}

// WithNotices returns a new Client that writes human-readable rate limit
// notices to w.
func (c *Client) WithNotices(w io.Writer) *Client {
	cp := c.clone()
	cp.notices = w
	return cp
}

// WithMetrics returns a new Client that records request metrics.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	cp := c.clone()
	cp.metrics = m
	return cp
}

// envelope is the part of every Web API response needed to decide success.
type envelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// get calls a Web API method and decodes the response into out.
// 429 responses are waited out and retried without limit; the request is
// always allowed to finish once sent, cancellation is only observed before
// sending and while waiting.
func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}

		body, err := c.send(ctx, method, endpoint)

		var rle *slackapi.RateLimitedError
		if errors.As(err, &rle) {
			c.logger.Warn("rate limited by slack",
				"method", method,
				"retry_after", rle.RetryAfter,
			)
			fmt.Fprintf(c.notices, "Rate limited. Waiting %ds...\n", int(rle.RetryAfter/time.Second))
			c.metrics.RecordRateLimitWait(ctx, method, rle.RetryAfter)

			if err := c.retry.Wait(ctx, rle.RetryAfter); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		return decodeEnvelope(body, out)
	}
}

// send performs a single GET. A 429 is reported as *slack.RateLimitedError.
func (c *Client) send(ctx context.Context, method, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordAPIRequest(ctx, method, resp.StatusCode, time.Since(start))
	c.logger.Debug("slack api response",
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &slackapi.RateLimitedError{RetryAfter: c.retry.Delay(resp.Header)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, newTransportError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}
	return body, nil
}

// newTransportError keeps the reason phrase the server actually sent.
func newTransportError(resp *http.Response) *TransportError {
	return &TransportError{
		StatusCode: resp.StatusCode,
		Status:     strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "),
	}
}

// decodeEnvelope checks the ok flag and unmarshals body into out.
func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parsing response envelope: %w", err)
	}
	if env.OK == nil || !*env.OK {
		return &APIError{Code: env.Error, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
