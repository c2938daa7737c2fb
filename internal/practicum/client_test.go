package practicum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dew-77/homework-bot/internal/homework"
)

func TestFetchStatusSendsTokenAndWatermark(t *testing.T) {
	var gotAuth, gotFrom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":2000}`))
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Token: "secret"})
	defer c.Close()

	resp, err := c.FetchStatus(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "OAuth secret", gotAuth)
	assert.Equal(t, "1000", gotFrom)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, homework.Watermark(2000), resp.NextWatermark)
}

func TestFetchStatusNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Token: "t"})
	_, err := c.FetchStatus(context.Background(), 1)
	require.Error(t, err)

	var sce *homework.StatusCodeError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, http.StatusInternalServerError, sce.Code)
}

func TestFetchStatusBadJSONIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Token: "t"})
	_, err := c.FetchStatus(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, homework.ErrTransport))
}

func TestFetchStatusSchemaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_date":1}`))
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Token: "t"})
	_, err := c.FetchStatus(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, homework.ErrSchema))
	assert.Contains(t, err.Error(), "homeworks")
}

func TestFetchStatusUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Config{Endpoint: url, Token: "t"})
	_, err := c.FetchStatus(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, homework.ErrTransport))
}

func TestFetchStatusTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(Config{Endpoint: server.URL, Token: "t", Timeout: 50 * time.Millisecond})
	_, err := c.FetchStatus(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, homework.ErrTransport))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, DefaultTimeout, c.timeout)

	var nilClient *Client
	nilClient.Close()
}
