package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/varnalabs/apitestgen/internal/engineerr"
)

// DefaultMaxSourceBytes bounds how much of a source document is read.
const DefaultMaxSourceBytes int64 = 10 << 20

// Settings configures source reading.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries counts attempts after the first one; only transient failures
	// (>=500, 429, or network errors) are retried.
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// MaxBytes caps the document size; larger inputs are rejected.
	MaxBytes int64
	// Client overrides the HTTP client; nil uses one built from HTTPTimeout.
	Client *http.Client
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		MaxBytes:    DefaultMaxSourceBytes,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithMaxBytes(n int64) Option { return func(s *Settings) { s.MaxBytes = n } }
func WithHTTPClient(c *http.Client) Option { return func(s *Settings) { s.Client = c } }

// ReadSource returns the raw bytes of an OpenAPI document.
//
// input may be a filesystem path or an http/https URL. file:// and every other
// scheme are rejected. All failures are ParseFailures: from the pipeline's point of
// view an unreadable input is indistinguishable from an unparseable one.
func ReadSource(ctx context.Context, input string, opts ...Option) ([]byte, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, engineerr.Parse(nil, "spec: input is empty")
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && (u.Host != "" || strings.EqualFold(u.Scheme, "file"))
	if isURL {
		switch scheme := strings.ToLower(u.Scheme); scheme {
		case "file":
			return nil, engineerr.Parse(nil, "spec: file:// URLs are not accepted, pass a path instead")
		case "http", "https":
			raw, err := fetchWithRetry(ctx, input, settings)
			if err != nil {
				return nil, engineerr.Parse(err, "spec: fetch %s: %v", input, err)
			}
			return raw, nil
		default:
			return nil, engineerr.Parse(nil, "spec: unsupported URL scheme %q (only http/https allowed)", scheme)
		}
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: resolve path: %v", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: read file %s: %v", abs, err)
	}
	defer f.Close()
	raw, err := readLimited(f, settings.MaxBytes)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: read file %s: %v", abs, err)
	}
	return raw, nil
}

var errTooLarge = errors.New("document exceeds size limit")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, limit)
	}
	return raw, nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := settings.Client
	if client == nil {
		client = &http.Client{Timeout: settings.HTTPTimeout}
	}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := 1
	if settings.MaxRetries > 0 {
		attempts += settings.MaxRetries
	}
	for i := 0; i < attempts; i++ {
		raw, retry, err := fetchOnce(ctx, client, rawURL, settings.MaxBytes)
		if err == nil {
			return raw, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// fetchOnce performs one GET and reports whether a failure is worth retrying.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string, limit int64) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode < 300:
		raw, err := readLimited(resp.Body, limit)
		return raw, false, err
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
