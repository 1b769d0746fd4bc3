package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusOK)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRobotsChecker_Check(t *testing.T) {
	server, hits := robotsServer(t, http.StatusOK, "User-agent: landchain\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	checker := NewRobotsChecker(server.Client(), "landchain/0.1 (+https://github.com/ppiankov/landchain)")
	ctx := context.Background()

	allowed, delay, err := checker.Check(ctx, server.URL+"/exports/12-150-95.html")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !allowed {
		t.Error("expected export path allowed for landchain")
	}
	if delay != 2*time.Second {
		t.Errorf("expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.Check(ctx, server.URL+"/private/index.html")
	if allowed {
		t.Error("expected private path disallowed")
	}

	if hits.Load() != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", hits.Load())
	}

	checker.Forget()
	_, _, _ = checker.Check(ctx, server.URL+"/exports/a.html")
	if hits.Load() != 2 {
		t.Errorf("expected refetch after Forget, got %d", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server, _ := robotsServer(t, http.StatusNotFound, "")
	checker := NewRobotsChecker(server.Client(), "landchain/0.1")

	allowed, _, err := checker.Check(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("expected allowed without robots.txt, got %v (%v)", allowed, err)
	}
}

func TestRobotsChecker_ServerErrorNotCached(t *testing.T) {
	server, hits := robotsServer(t, http.StatusServiceUnavailable, "")
	checker := NewRobotsChecker(server.Client(), "landchain/0.1")

	allowed, _, _ := checker.Check(context.Background(), server.URL+"/a")
	if allowed {
		t.Error("expected disallowed while robots.txt errors")
	}
	_, _, _ = checker.Check(context.Background(), server.URL+"/a")
	if hits.Load() != 2 {
		t.Errorf("expected robots.txt asked again after 5xx, got %d", hits.Load())
	}
}

func TestRobotsChecker_NonHTTP(t *testing.T) {
	checker := NewRobotsChecker(nil, "landchain/0.1")
	allowed, _, err := checker.Check(context.Background(), "file:///tmp/runsheet.csv")
	if err != nil || !allowed {
		t.Errorf("expected non-HTTP URL allowed, got %v (%v)", allowed, err)
	}
}

func TestAgentName(t *testing.T) {
	tests := map[string]string{
		"landchain/0.1 (+https://github.com/ppiankov/landchain)": "landchain",
		"curl/8.0":  "curl",
		"":          "",
		"plainname": "plainname",
	}
	for in, want := range tests {
		if got := AgentName(in); got != want {
			t.Errorf("AgentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewTransport_Proxies(t *testing.T) {
	proxy := NewTransport("http://proxy:3128", "http://secure-proxy:3129").Proxy

	req, _ := http.NewRequest(http.MethodGet, "https://recorder.example.gov/", nil)
	u, err := proxy(req)
	if err != nil || u.Host != "secure-proxy:3129" {
		t.Errorf("expected https proxy, got %v (%v)", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://recorder.example.gov/", nil)
	u, err = proxy(req)
	if err != nil || u.Host != "proxy:3128" {
		t.Errorf("expected http proxy, got %v (%v)", u, err)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5*time.Second, "", "")
	if c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("expected *http.Transport, got %T", c.Transport)
	}
}
