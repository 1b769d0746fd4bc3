package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 << 10

// RobotsChecker consults a recorder portal's robots.txt before its documents
// are downloaded. Parsed files are kept per scheme and host.
type RobotsChecker struct {
	mu     sync.RWMutex
	sites  map[string]*robotstxt.RobotsData
	client *http.Client
	agent  string
	header string
}

// NewRobotsChecker creates a checker that fetches robots.txt with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		sites:  make(map[string]*robotstxt.RobotsData),
		client: client,
		agent:  AgentName(userAgent),
		header: userAgent,
	}
}

// Check reports whether rawURL may be fetched and the crawl delay the site
// asks for. A robots.txt that cannot be retrieved allows the fetch.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return true, 0, nil
	}

	data, err := r.site(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	p := parsed.EscapedPath()
	if p == "" {
		p = "/"
	}
	if parsed.RawQuery != "" {
		p += "?" + parsed.RawQuery
	}

	var delay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(p, r.agent), delay, nil
}

func (r *RobotsChecker) site(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	r.mu.RLock()
	data, ok := r.sites[key]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.header)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows everything, 5xx disallows everything
	data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	// A server error may be transient; ask again next time
	if resp.StatusCode < http.StatusInternalServerError {
		r.mu.Lock()
		r.sites[key] = data
		r.mu.Unlock()
	}
	return data, nil
}

// Forget drops every cached robots.txt
func (r *RobotsChecker) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = make(map[string]*robotstxt.RobotsData)
}

// AgentName returns the product token of a User-Agent header,
// "landchain/0.1 (+https://...)" becomes "landchain"
func AgentName(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
