// Package appupdate checks whether a newer release of the app is available.
// It looks up the latest GitHub release and compares tags as semantic
// versions. Checking is all it does; installing a new build is left to the
// platform's package manager.
package appupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ErrDevBuild is returned when the running binary has no release version.
var ErrDevBuild = errors.New("cannot check updates for a development build")

const (
	defaultOwner       = "cramdeck"
	defaultRepo        = "cramdeck"
	defaultAPIBaseURL  = "https://api.github.com"
	defaultMaxAttempts = 3
	defaultRetryWait   = 200 * time.Millisecond
)

// CheckInput carries the version of the running binary.
type CheckInput struct {
	Version string
}

// CheckResult reports the latest release relative to the running binary.
type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

// Checker queries the release API.
type Checker struct {
	owner       string
	repo        string
	baseURL     string
	client      *http.Client
	maxAttempts int
	retryWait   time.Duration
	log         *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL overrides the release API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Checker) { c.baseURL = u }
}

// WithRepository overrides the GitHub owner/repo the checker queries.
func WithRepository(owner, repo string) Option {
	return func(c *Checker) {
		if owner != "" {
			c.owner = owner
		}
		if repo != "" {
			c.repo = repo
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.client = hc }
}

// WithMaxAttempts sets the total attempts per check, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryWait sets the base wait between attempts.
func WithRetryWait(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.retryWait = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Checker) {
		if log != nil {
			c.log = log
		}
	}
}

// NewChecker creates a checker pointed at the app's release repository.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		owner:       defaultOwner,
		repo:        defaultRepo,
		baseURL:     defaultAPIBaseURL,
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

// releaseResponse is the slice of the GitHub release payload we consume.
type releaseResponse struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Check fetches the latest release and compares it to input.Version.
func (c *Checker) Check(ctx context.Context, input *CheckInput) (*CheckResult, error) {
	if input.Version == "" || input.Version == "(devel)" {
		return nil, ErrDevBuild
	}

	current := canonicalVersion(input.Version)
	if !semver.IsValid(current) {
		return nil, fmt.Errorf("invalid current version %q", input.Version)
	}

	release, err := c.latestRelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	latest := canonicalVersion(release.TagName)
	if !semver.IsValid(latest) {
		return nil, fmt.Errorf("invalid release tag %q", release.TagName)
	}

	return &CheckResult{
		CurrentVersion:  current,
		LatestVersion:   latest,
		ReleaseURL:      release.HTMLURL,
		UpdateAvailable: semver.Compare(latest, current) > 0,
	}, nil
}

// latestRelease fetches the release metadata with bounded retry. Server
// errors and network failures are retried; anything else is terminal.
func (c *Checker) latestRelease(ctx context.Context) (*releaseResponse, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(c.baseURL, "/"), c.owner, c.repo)

	var lastErr error
	for attempt := range c.maxAttempts {
		release, retryableErr, err := c.fetchRelease(ctx, url)
		if err == nil {
			return release, nil
		}
		lastErr = err

		if !retryableErr {
			return nil, err
		}
		if attempt == c.maxAttempts-1 {
			break
		}

		wait := c.retryWait * time.Duration(1<<attempt)
		c.log.Debug("release check failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, lastErr
}

func (c *Checker) fetchRelease(ctx context.Context, url string) (release *releaseResponse, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	var parsed releaseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode release response: %w", err)
	}
	return &parsed, false, nil
}

// canonicalVersion ensures the leading "v" the semver package requires.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
