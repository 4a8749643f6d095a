package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenRouter(t *testing.T, h http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewOpenRouterClient("key", srv.URL+"/", "openai/gpt-4o", 5*time.Second)
	c.backoff = time.Millisecond
	return c
}

func TestOpenRouterDescribeImage(t *testing.T) {
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		user := req.Messages[1]
		require.Len(t, user.Content, 2)
		assert.Equal(t, "image_url", user.Content[1].Type)
		assert.Equal(t, "https://cdn.example.com/shoe.png", user.Content[1].ImageURL.URL)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"product_name\":\"Shoe\"}"}}]}`))
	})

	out, err := c.DescribeImage(context.Background(), "sys", "describe", "https://cdn.example.com/shoe.png")
	require.NoError(t, err)
	assert.Equal(t, `{"product_name":"Shoe"}`, out)
}

func TestOpenRouterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	out, err := c.DescribeImage(context.Background(), "", "", "https://x/y.png")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenRouterDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := c.DescribeImage(context.Background(), "", "", "https://x/y.png")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.DescribeImage(context.Background(), "", "", "https://x/y.png")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterDoesNotRetryMalformedBody(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":`))
	})
	_, err := c.DescribeImage(context.Background(), "", "", "https://x/y.png")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.DescribeImage(context.Background(), "", "", "https://x/y.png")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, int32(openRouterAttempts), calls.Load())
}
