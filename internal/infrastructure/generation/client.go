package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/shelfsense/backend/internal/domain"
)

// Config holds settings for the structured-generation service
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
}

// Client talks to an OpenAI-compatible chat completion endpoint in JSON mode
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	rateLimiter *rate.Limiter
	maxAttempts int
	debug       bool
	logger      zerolog.Logger
}

// NewClient creates a new structured-generation client
func NewClient(config Config, logger zerolog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		model:       config.Model,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 2),
		maxAttempts: maxAttempts,
		logger:      logger.With().Str("component", "generation").Logger(),
	}
}

// SetDebug enables logging of request and response bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Generate sends the prompt and returns the JSON document the model produced.
// Transient failures (network errors, 429 and 5xx) are retried with
// exponential backoff; other 4xx responses fail immediately.
func (c *Client) Generate(ctx context.Context, messages []domain.Message) ([]byte, error) {
	payload, err := json.Marshal(newChatRequest(c.model, messages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		if c.debug {
			c.logger.Debug().Int("attempt", attempt).RawJSON("request", payload).Msg("sending completion request")
		}

		resp, err := c.doRequest(ctx, endpoint, payload)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("request error")
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn().Int("attempt", attempt).Msg("rate limited by generation service")
			lastErr = fmt.Errorf("%w: generation service returned 429", domain.ErrRateLimited)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Msg("server error")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrGenerationFailed, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrGenerationFailed, resp.StatusCode, string(body))
		}

		if c.debug {
			c.logger.Debug().Int("attempt", attempt).Bytes("response", body).Msg("received completion")
		}

		var completion chatResponse
		if err := json.Unmarshal(body, &completion); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrGenerationFailed, err)
		}
		return extractContent(&completion)
	}

	c.logger.Error().Err(lastErr).Int("attempts", c.maxAttempts).Msg("all attempts failed")
	return nil, lastErr
}

// doRequest executes an HTTP POST request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ShelfSense/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return resp, nil
}
