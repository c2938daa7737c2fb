// Package practicum talks to the homework status endpoint.
package practicum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dew-77/homework-bot/internal/homework"
)

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTimeout  = 30 * time.Second

	maxResponseBodySize = 1 << 20 // 1MB
)

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration
}

// Client fetches homework statuses. It keeps no state between calls.
type Client struct {
	endpoint   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	ep := strings.TrimSpace(cfg.Endpoint)
	if ep == "" {
		ep = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: ep,
		token:    cfg.Token,
		timeout:  timeout,
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchStatus requests statuses changed since watermark and returns the
// validated response.
//
// Errors are one of *homework.TransportError, *homework.StatusCodeError or
// *homework.SchemaError.
func (c *Client) FetchStatus(ctx context.Context, watermark homework.Watermark) (homework.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return homework.StatusResponse{}, &homework.TransportError{Op: "build request", Err: err}
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(int64(watermark), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return homework.StatusResponse{}, &homework.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return homework.StatusResponse{}, &homework.TransportError{Op: "request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return homework.StatusResponse{}, &homework.StatusCodeError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return homework.StatusResponse{}, &homework.TransportError{Op: "read body", Err: err}
	}
	if len(body) > maxResponseBodySize {
		return homework.StatusResponse{}, &homework.TransportError{Op: "read body", Err: fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)}
	}

	payload, err := homework.DecodeResponse(body)
	if err != nil {
		return homework.StatusResponse{}, err
	}
	return homework.Validate(payload)
}

// Close closes idle connections. The client stays usable.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
