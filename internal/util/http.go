// Package util holds the HTTP plumbing shared by the document fetcher and
// the extraction providers.
package util

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient builds a client for outbound calls. A zero timeout means none;
// provider SDKs bound their calls with contexts instead.
func NewHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(httpProxy, httpsProxy),
	}
}

// NewTransport returns a transport that routes through the given proxies.
// With neither set it honors HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewTransport(httpProxy, httpsProxy string) *http.Transport {
	return &http.Transport{
		Proxy: proxyFunc(httpProxy, httpsProxy),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
}

func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	plain, plainErr := parseProxy(httpProxy)
	secure, secureErr := parseProxy(httpsProxy)

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && secure != nil {
			return secure, nil
		}
		if plain != nil {
			return plain, nil
		}
		if req.URL.Scheme == "https" && secureErr != nil {
			return nil, secureErr
		}
		if plainErr != nil {
			return nil, plainErr
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}
