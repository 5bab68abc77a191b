// Package httpc provides HTTP clients with sensible defaults.
// Use this instead of http.DefaultClient to ensure timeouts are set.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// APIKeyHeader is the header Google APIs accept an API key in.
const APIKeyHeader = "x-goog-api-key"

// NewTransport returns a transport with explicit dial and TLS timeouts.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewClient creates an HTTP client with the given timeout.
// A nil transport uses NewTransport.
func NewClient(timeout time.Duration, rt http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rt == nil {
		rt = NewTransport()
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

// APIKeyTransport adds a static API key header to every request.
type APIKeyTransport struct {
	Key  string
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *APIKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set(APIKeyHeader, t.Key)
	return base.RoundTrip(r)
}

// NewAPIKeyClient creates a client that authenticates with a static key.
func NewAPIKeyClient(key string, timeout time.Duration) *http.Client {
	return NewClient(timeout, &APIKeyTransport{Key: key, Base: NewTransport()})
}
