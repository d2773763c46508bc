package srcom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Retry and backoff defaults. The speedrun.com API throttles aggressively,
// so rate-limit responses back off from a larger base than plain transients.
const (
	DefaultMaxRetries    = 3
	DefaultInitialDelay  = 1 * time.Second
	rateLimitedBaseDelay = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	userAgent            = "runpulse/0.1"
)

// DefaultBaseURL is the public speedrun.com v1 API root.
const DefaultBaseURL = "https://www.speedrun.com/api/v1"

// Client is an HTTP client for the speedrun.com API. It handles request
// construction, client-side rate limiting, retry with exponential backoff,
// and failure classification. All API operations are idempotent GETs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter

	maxRetries   int
	initialDelay time.Duration

	// sleepFunc waits between retries. Tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithRetries overrides the retry count and initial backoff delay.
func WithRetries(maxRetries int, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// WithRateLimit caps outgoing requests at rps requests per second.
// Zero or negative disables client-side limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a speedrun.com API client. baseURL is typically
// DefaultBaseURL; nil httpClient and logger fall back to sane defaults.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		sleepFunc:    timeSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetJSON fetches path (relative to the base URL) and decodes the response
// body into v. Transient failures are retried with exponential backoff;
// terminal failures return an *APIError carrying the failure kind.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &APIError{
			URL:  c.baseURL + path,
			Kind: KindMalformed,
			Err:  fmt.Errorf("%w: %w", ErrMalformed, err),
		}
	}

	return nil
}

// get performs the retry loop for a single GET request and returns the
// response body on success.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("srcom: request canceled: %w", err)
			}
		}

		body, retryIn, err := c.doOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("srcom: request canceled: %w", ctx.Err())
		}

		if Classify(err) != KindTransient {
			return nil, err
		}

		lastErr = err

		if attempt == attempts-1 {
			break
		}

		backoff := retryIn
		if backoff <= 0 {
			backoff = c.calcBackoff(err, attempt)
		}

		c.logger.Warn("retrying request",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
			return nil, fmt.Errorf("srcom: request canceled: %w", sleepErr)
		}
	}

	c.logger.Error("request failed after retries",
		slog.String("url", url),
		slog.Int("attempts", attempts),
		slog.String("last_error", lastErr.Error()),
	)

	return nil, &APIError{
		URL:  url,
		Kind: KindRetriesExhausted,
		Err:  fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr),
	}
}

// doOnce executes a single HTTP GET. On a retryable response carrying a
// Retry-After header it returns the server-requested delay.
func (c *Client) doOnce(ctx context.Context, url string) (body []byte, retryIn time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("srcom: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures classify as transient.
		return nil, 0, fmt.Errorf("srcom: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, 0, fmt.Errorf("srcom: reading response body: %w", readErr)
		}

		return data, 0, nil
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if statusRateLimited(resp.StatusCode) {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, parseErr := strconv.Atoi(ra); parseErr == nil && seconds > 0 {
				retryIn = time.Duration(seconds) * time.Second
			}
		}
	}

	return nil, retryIn, &APIError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Kind:       kindForStatus(resp.StatusCode),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// calcBackoff computes initialDelay * 2^attempt, from a larger base when the
// failure was a rate-limit response.
func (c *Client) calcBackoff(err error, attempt int) time.Duration {
	base := c.initialDelay

	var apiErr *APIError
	if errors.As(err, &apiErr) && statusRateLimited(apiErr.StatusCode) {
		base = rateLimitedBaseDelay
	}

	return base * (1 << attempt)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
