package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL       = "https://catalog.cramdeck.app"
	defaultMaxAttempts   = 3
	defaultRetryWait     = 200 * time.Millisecond
	defaultQuestionLimit = 20
)

// Client talks to the remote catalog service. Every response body is
// validated against its JSON schema before decoding, so callers never see
// half-formed catalog data.
type Client struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	retryWait   time.Duration
	log         *slog.Logger
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the catalog service base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithMaxAttempts sets the total attempts per request, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryWait sets the base wait between attempts. The wait doubles on
// each further attempt.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryWait = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a catalog client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		maxAttempts: defaultMaxAttempts,
		retryWait:   defaultRetryWait,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subjects fetches all subjects from the catalog service.
func (c *Client) Subjects(ctx context.Context) ([]Subject, error) {
	var envelope struct {
		Subjects []Subject `json:"subjects"`
	}
	if err := c.fetch(ctx, "/v1/subjects", subjectsSchema, &envelope); err != nil {
		return nil, err
	}
	return envelope.Subjects, nil
}

// ExamTypes fetches the exam formats from the catalog service.
func (c *Client) ExamTypes(ctx context.Context) ([]ExamType, error) {
	var envelope struct {
		ExamTypes []ExamType `json:"exam_types"`
	}
	if err := c.fetch(ctx, "/v1/exam-types", examTypesSchema, &envelope); err != nil {
		return nil, err
	}
	return envelope.ExamTypes, nil
}

// Questions fetches up to limit questions for the given subject.
func (c *Client) Questions(ctx context.Context, subjectSlug string, limit int) ([]Question, error) {
	if subjectSlug == "" {
		return nil, fmt.Errorf("subject slug is required")
	}
	if limit <= 0 {
		limit = defaultQuestionLimit
	}

	endpoint := fmt.Sprintf("/v1/subjects/%s/questions?limit=%d", url.PathEscape(subjectSlug), limit)
	var envelope struct {
		Questions []Question `json:"questions"`
	}
	if err := c.fetch(ctx, endpoint, questionsSchema, &envelope); err != nil {
		return nil, err
	}
	return envelope.Questions, nil
}

// fetch retrieves one endpoint with bounded retry, validates the body
// against the schema, and decodes it into out.
func (c *Client) fetch(ctx context.Context, endpoint string, schema *payloadSchema, out any) error {
	var lastErr error

	for attempt := range c.maxAttempts {
		raw, err := c.get(ctx, c.baseURL+endpoint)
		if err == nil {
			if err := validatePayload(schema, endpoint, raw); err != nil {
				// A well-formed 200 with a bad body will not improve on retry.
				return err
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return &ErrInvalidPayload{Endpoint: endpoint, Err: fmt.Errorf("decode: %w", err)}
			}
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		// Last attempt — don't sleep, just return the error.
		if attempt == c.maxAttempts-1 {
			break
		}

		wait := c.retryWait * time.Duration(1<<attempt)
		c.log.Debug("catalog request failed, retrying",
			"endpoint", endpoint, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrBadStatus{URL: requestURL, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// retryable reports whether a fetch error is worth another attempt.
// Server-side failures and network errors are transient; client errors,
// malformed payloads, and cancelled contexts are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var bad *ErrBadStatus
	if errors.As(err, &bad) {
		return bad.StatusCode >= http.StatusInternalServerError
	}

	var invalid *ErrInvalidPayload
	if errors.As(err, &invalid) {
		return false
	}

	return true
}
