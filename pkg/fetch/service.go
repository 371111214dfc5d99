// Package fetch implements a bounded-retry, rate-limited, robots-aware HTTP
// fetch wrapper. One Service instance belongs to exactly one adapter; its
// rate-limit clock and robots cache are therefore touched only from that
// adapter's run goroutine and need no locking beyond what guards concurrent
// metrics-endpoint reads elsewhere in the process.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// Config holds the fetch wrapper's tunables.
type Config struct {
	UserAgent          string
	TimeoutSeconds     int
	Attempts           int
	BaseBackoffSeconds float64
	MinIntervalSeconds float64
	RespectRobots      bool
}

// DefaultConfig returns the documented defaults: 3 attempts, 1.0s base
// backoff, 0.25s minimum per-host interval, 30s timeout, robots honored.
func DefaultConfig() Config {
	return Config{
		UserAgent:          "ocean-watch-rfmo-ingestion/1.0",
		TimeoutSeconds:     30,
		Attempts:           3,
		BaseBackoffSeconds: 1.0,
		MinIntervalSeconds: 0.25,
		RespectRobots:      true,
	}
}

// Fetcher is the subset of the Adapter contract the Fetch Service drives
// when wrapping a per-document fetch with retries.
type Fetcher interface {
	FetchDocument(ctx context.Context, ref models.DocumentRef) (*models.RawDocument, error)
}

// Service is a per-adapter HTTP client with rate limiting, robots.txt
// enforcement, and retry-with-backoff.
type Service struct {
	cfg    Config
	client *http.Client

	lastRequestAt time.Time
	robotsCache   map[string]*robotsRules
}

// NewService constructs a Service for a single adapter instance.
func NewService(cfg Config) *Service {
	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		robotsCache: make(map[string]*robotsRules),
	}
}

// Get performs one rate-limited, robots-checked HTTP GET against url. It
// does not retry; callers that want the retry policy use FetchDocument.
func (s *Service) Get(ctx context.Context, rawURL string) (*models.RawDocument, error) {
	if err := s.waitForRateLimit(ctx); err != nil {
		return nil, err
	}
	if s.cfg.RespectRobots {
		if err := s.assertAllowedByRobots(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ingesterr.FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ingesterr.FetchError{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ingesterr.FetchError{URL: rawURL, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &ingesterr.FetchError{URL: rawURL, Cause: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &models.RawDocument{
		SourceURL:   rawURL,
		StatusCode:  resp.StatusCode,
		Headers:     headers,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// FetchDocument wraps adapter.FetchDocument(ref) in an attempt/backoff
// policy: N attempts, linear backoff attempt*base_seconds, retry on any
// failure except a robots denial (terminal, non-retryable).
func (s *Service) FetchDocument(ctx context.Context, adapter Fetcher, ref models.DocumentRef) (*models.RawDocument, error) {
	var lastErr error
	attempts := s.cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := adapter.FetchDocument(ctx, ref)
		if err == nil {
			return raw, nil
		}

		var robotsErr *ingesterr.RobotsDeniedError
		if errors.As(err, &robotsErr) {
			return nil, err
		}

		lastErr = err
		if attempt < attempts {
			backoff := time.Duration(float64(attempt) * s.cfg.BaseBackoffSeconds * float64(time.Second))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, &ingesterr.FetchError{URL: ref.SourceURL, Cause: fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)}
}

func (s *Service) waitForRateLimit(ctx context.Context) error {
	minInterval := time.Duration(s.cfg.MinIntervalSeconds * float64(time.Second))
	if minInterval <= 0 {
		return nil
	}
	if s.lastRequestAt.IsZero() {
		s.lastRequestAt = time.Now()
		return nil
	}
	elapsed := time.Since(s.lastRequestAt)
	if elapsed < minInterval {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(minInterval - elapsed):
		}
	}
	s.lastRequestAt = time.Now()
	return nil
}

func (s *Service) assertAllowedByRobots(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ingesterr.FetchError{URL: rawURL, Cause: err}
	}
	host := parsed.Scheme + "://" + parsed.Host

	rules, cached := s.robotsCache[host]
	if !cached {
		rules = s.fetchRobots(ctx, host)
		s.robotsCache[host] = rules
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	if !rules.canFetch(path) {
		return &ingesterr.RobotsDeniedError{URL: rawURL}
	}
	return nil
}

// fetchRobots fetches and caches /robots.txt once per host. A fetch failure
// is fail-open: it caches an empty (no-restrictions) ruleset rather than
// blocking every URL on that host.
func (s *Service) fetchRobots(ctx context.Context, host string) *robotsRules {
	robotsURL := strings.TrimSuffix(host, "/") + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &robotsRules{}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return &robotsRules{}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &robotsRules{}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &robotsRules{}
	}

	return parseRobotsTxt(body, s.cfg.UserAgent)
}
