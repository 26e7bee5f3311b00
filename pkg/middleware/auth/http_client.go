package auth

import (
	"net/http"
	"time"
)

// HTTPDoer is satisfied by *http.Client and allows easy mocking in tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    30 * time.Second,
			DisableCompression: false,
		},
		Timeout: timeout,
	}
}
