package httpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAPIKeyClientSetsHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(APIKeyHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewAPIKeyClient("secret", time.Second)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	if got != "secret" {
		t.Errorf("Expected key header 'secret', got %q", got)
	}
	if req.Header.Get(APIKeyHeader) != "" {
		t.Error("Caller's request must not be modified")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(0, nil)
	if c.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("Expected *http.Transport, got %T", c.Transport)
	}
}
