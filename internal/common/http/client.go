// internal/common/http/client.go
package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	userAgent       = "leadgate/1.0"
)

// Client is a thin timeout-bound wrapper that stamps every outgoing request
// with a correlation id.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWith wraps an existing *http.Client, e.g. one from httptest.
func NewClientWith(c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{httpClient: c}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(stamp(req))
}

// RequestID returns the correlation id carried by req.
func RequestID(req *http.Request) string {
	return req.Header.Get(HeaderRequestID)
}

func stamp(req *http.Request) *http.Request {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req
}
