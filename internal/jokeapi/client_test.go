package jokeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/quip/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	return NewClient(cfg)
}

func TestClient_Categories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/categories", r.URL.Path)
		assert.Equal(t, "quip-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":false,"categories":["Any","Misc","Programming","Dark","Pun","Spooky","Christmas"],"timestamp":1}`))
	})

	got, err := client.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Any", "Misc", "Programming", "Dark", "Pun", "Spooky", "Christmas"}, got)
}

func TestClient_Jokes(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		amount      int
		body        string
		status      int
		expected    []string
		expectError bool
		errorCode   int
	}{
		{
			name:     "jokes array",
			category: "Pun",
			amount:   2,
			body:     `{"error":false,"amount":2,"jokes":[{"id":1,"type":"single","joke":"p1"},{"id":2,"type":"single","joke":"p2"}]}`,
			status:   http.StatusOK,
			expected: []string{"p1", "p2"},
		},
		{
			name:     "bare single joke",
			category: "Dark",
			amount:   1,
			body:     `{"error":false,"category":"Dark","type":"single","joke":"d1","id":7,"safe":false,"lang":"en"}`,
			status:   http.StatusOK,
			expected: []string{"d1"},
		},
		{
			name:     "fewer than requested",
			category: "Spooky",
			amount:   2,
			body:     `{"error":false,"amount":1,"jokes":[{"id":3,"type":"single","joke":"s1"}]}`,
			status:   http.StatusOK,
			expected: []string{"s1"},
		},
		{
			name:     "empty joke texts are skipped",
			category: "Misc",
			amount:   2,
			body:     `{"error":false,"amount":2,"jokes":[{"id":4,"joke":""},{"id":5,"joke":"m1"}]}`,
			status:   http.StatusOK,
			expected: []string{"m1"},
		},
		{
			name:        "error flag in body",
			category:    "Pun",
			amount:      2,
			body:        `{"error":true,"internalError":false,"code":106,"message":"No matching joke found","causedBy":["none"],"additionalInfo":"","timestamp":1}`,
			status:      http.StatusOK,
			expectError: true,
			errorCode:   106,
		},
		{
			name:        "server error",
			category:    "Pun",
			amount:      2,
			body:        `{"error":true,"code":500,"message":"Internal error"}`,
			status:      http.StatusInternalServerError,
			expectError: true,
			errorCode:   500,
		},
		{
			name:        "malformed body",
			category:    "Pun",
			amount:      2,
			body:        `not json`,
			status:      http.StatusOK,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/joke/"+tt.category, r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			got, err := client.Jokes(context.Background(), tt.category, tt.amount)
			if tt.expectError {
				require.Error(t, err)
				if tt.errorCode != 0 {
					var apiErr *APIError
					require.True(t, errors.As(err, &apiErr))
					assert.Equal(t, tt.errorCode, apiErr.Code)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClient_JokesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "single", q.Get("type"))
		assert.Equal(t, "2", q.Get("amount"))
		assert.Equal(t, "de", q.Get("lang"))
		assert.Equal(t, "nsfw,racist", q.Get("blacklistFlags"))
		assert.True(t, q.Has("safe-mode"))
		w.Write([]byte(`{"error":false,"amount":0,"jokes":[]}`))
	}))
	defer server.Close()

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Lang = "de"
	cfg.API.BlacklistFlags = []string{"nsfw", "racist"}
	cfg.API.SafeMode = true

	got, err := NewClient(cfg).Jokes(context.Background(), "Programming", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_EscapesCategory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/joke/Dark%2FPun", r.URL.EscapedPath())
		w.Write([]byte(`{"error":false,"amount":0,"jokes":[]}`))
	})

	_, err := client.Jokes(context.Background(), "Dark/Pun", 2)
	require.NoError(t, err)
}

func TestClient_EmptyCategory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Jokes(context.Background(), "", 2)
	assert.Error(t, err)
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Categories(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 400, Code: 106, Message: "No matching joke found"}
	assert.Contains(t, err.Error(), "No matching joke found")
	assert.Contains(t, err.Error(), "106")

	bare := &APIError{StatusCode: 502}
	assert.Equal(t, "joke service error: HTTP 502", bare.Error())
}

func TestClient_RateLimited(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"error":false,"categories":["Pun"]}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.RateInterval = 200 * time.Millisecond
	cfg.API.RateBurst = 1
	client := NewClient(cfg)

	start := time.Now()
	_, err := client.Categories(context.Background())
	require.NoError(t, err)

	// The next token is 200ms away, past this deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Categories(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, int32(1), hits.Load(), "throttled request must not reach the server")

	_, err = client.Categories(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(2), hits.Load())
}
