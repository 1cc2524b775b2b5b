// Package source fetches the raw knowledge document from its upstream URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultBackoffBase = 250 * time.Millisecond
	defaultBackoffMax  = 5 * time.Second
	maxDocumentBytes   = 10 * 1024 * 1024
)

// ErrEmptyURL is returned when no document URL is configured
var ErrEmptyURL = errors.New("knowledge source url is empty")

// ErrDocumentTooLarge is returned when the document body exceeds maxDocumentBytes.
var ErrDocumentTooLarge = errors.New("knowledge document exceeds size limit")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("knowledge source returned status %d", e.StatusCode)
}

// Config controls the HTTP fetcher.
type Config struct {
	URL         string
	Timeout     time.Duration
	Retries     uint64
	BackoffBase time.Duration
	BackoffMax  time.Duration
	HTTPClient  *http.Client
}

// HTTPFetcher performs a GET against a fixed document URL with bounded retries.
type HTTPFetcher struct {
	url         string
	httpClient  *http.Client
	timeout     time.Duration
	retries     uint64
	backoffBase time.Duration
	backoffMax  time.Duration
}

func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPFetcher{
		url:         cfg.URL,
		httpClient:  client,
		timeout:     cfg.Timeout,
		retries:     cfg.Retries,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
	}, nil
}

// URL returns the document URL.
func (f *HTTPFetcher) URL() string {
	return f.url
}

// MaxDuration is the longest a Fetch can take: every attempt timing out with
// the capped backoff between them.
func (f *HTTPFetcher) MaxDuration() time.Duration {
	return f.timeout*time.Duration(f.retries+1) + f.backoffMax*time.Duration(f.retries)
}

// Fetch downloads the document body. Transport errors, 429 and 5xx responses
// are retried; other statuses and oversized bodies fail immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	backoff := retry.WithMaxRetries(f.retries, retry.WithCappedDuration(f.backoffMax, retry.NewExponential(f.backoffBase)))

	var body string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = f.fetchOnce(ctx)
		if fetchErr != nil {
			if isRetryable(fetchErr) {
				return retry.RetryableError(fetchErr)
			}
			return fetchErr
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch knowledge source: %w", err)
	}

	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/csv, text/html;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return "", ErrDocumentTooLarge
	}

	return string(data), nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrDocumentTooLarge) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}
