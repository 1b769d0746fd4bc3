package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/util"
	"github.com/ppiankov/landchain/internal/worker"
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// Fetcher downloads source documents (recorder portal exports, scanned-index
// text) referenced by URL in a tract file
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	hosts      *worker.Limiter // Crawl delays, keyed by host
	paced      sync.Map
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithProxy routes downloads through explicit proxies instead of HTTP_PROXY/HTTPS_PROXY
func WithProxy(httpProxy, httpsProxy string) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient.Transport = util.NewTransport(httpProxy, httpsProxy)
	}
}

// WithRobots checks robots.txt before each download and waits out the
// crawl delay a site asks for
func WithRobots() FetcherOption {
	return func(f *Fetcher) {
		f.robots = util.NewRobotsChecker(f.httpClient, f.userAgent)
	}
}

// NewFetcher creates a new Fetcher
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport("", ""),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		hosts:     worker.NewLimiter(0, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFetcherFromConfig builds the fetcher described by cfg
func NewFetcherFromConfig(cfg model.FetchConfig) *Fetcher {
	opts := []FetcherOption{WithProxy(cfg.HTTPProxy, cfg.HTTPSProxy)}
	if cfg.RespectRobots {
		opts = append(opts, WithRobots())
	}
	return NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBytes, opts...)
}

// ErrDisallowed is returned for documents a portal's robots.txt excludes
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetchResult is one downloaded document
type FetchResult struct {
	Content     string
	ContentType string
	Name        string
	FinalURL    string
	Truncated   bool
}

// retryableError marks responses worth another attempt
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// FetchWithRetry fetches rawURL, retrying 429 and 5xx responses with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.checkRobots(ctx, rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
		if err := f.hosts.Wait(ctx, hostOf(rawURL)); err != nil {
			return nil, err
		}
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", fetchAttempts, lastErr)
}

// checkRobots rejects disallowed URLs and paces the host at its crawl delay
func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if f.robots == nil {
		return nil
	}
	allowed, delay, err := f.robots.Check(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}

	host := hostOf(rawURL)
	if _, seen := f.paced.LoadOrStore(host, true); !seen && delay > 0 {
		f.hosts.SetProviderRate(host, 1/delay.Seconds(), 1)
	}
	return nil
}

func isRetryable(err error) bool {
	var retry *retryableError
	return errors.As(err, &retry)
}

// Fetch retrieves one document
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("fetch: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retryableError{fmt.Errorf("unexpected status: %s", resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	// Read one byte past the limit to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	truncated := int64(len(body)) > f.maxBytes
	if truncated {
		body = body[:f.maxBytes]
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Content:     string(body),
		ContentType: contentType,
		Name:        documentName(finalURL),
		FinalURL:    finalURL,
		Truncated:   truncated,
	}, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Host
}

// documentName is the last path segment of the URL, or its host
func documentName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	p := strings.Trim(parsed.Path, "/")
	if p == "" {
		return parsed.Host
	}
	return path.Base(p)
}
