package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/plantclef-go/internal/errors"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		cfg := DefaultConfig()
		client := New(&cfg)

		require.NotNil(t, client, "expected non-nil client")
		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.Equal(t, defaultUserAgent, client.userAgent, "expected default user agent")
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := Config{
			DefaultTimeout: 5 * time.Second,
			UserAgent:      "TestAgent/1.0",
		}
		client := New(&cfg)

		assert.Equal(t, 5*time.Second, client.defaultTimeout, "expected timeout 5s")
		assert.Equal(t, "TestAgent/1.0", client.userAgent, "expected user agent 'TestAgent/1.0'")
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := Config{} // All zero values
		client := New(&cfg)

		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.NotEmpty(t, client.userAgent, "expected non-empty user agent")
	})
}

func TestDo_BasicRequest(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "expected GET method")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	client := newTestClient(t, nil)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err, "request failed")
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected status 200")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read body")
	assert.Equal(t, "success", string(body), "expected body 'success'")
}

func TestDo_UserAgent(t *testing.T) {
	receivedUA := ""
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	cfg := Config{UserAgent: "CustomAgent/2.0"}
	client := newTestClient(t, &cfg)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err, "request failed")
	defer closeResponseBody(t, resp)

	assert.Equal(t, "CustomAgent/2.0", receivedUA, "expected User-Agent 'CustomAgent/2.0'")
}

func TestDo_ContextCancellation(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	// Cancel immediately
	cancel()

	resp, err := client.Do(ctx, req)
	defer closeResponseBody(t, resp)

	require.Error(t, err, "expected error from cancelled context")
	assert.ErrorIs(t, err, context.Canceled, "expected context.Canceled error")
}

func TestDo_ContextTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	// Create context with very short timeout
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(ctx, req)
	defer closeResponseBody(t, resp)

	require.Error(t, err, "expected timeout error")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "expected context.DeadlineExceeded error")
}

func TestDo_DefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	// Create client with very short default timeout
	cfg := Config{DefaultTimeout: 50 * time.Millisecond}
	client := newTestClient(t, &cfg)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	// Context has no deadline, so default timeout should apply
	resp, err := client.Do(t.Context(), req)
	defer closeResponseBody(t, resp)

	require.Error(t, err, "expected timeout error")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "expected context.DeadlineExceeded error")
}

func TestDo_ContextTimeoutOverridesDefault(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	// Client with very short default timeout
	cfg := Config{DefaultTimeout: 10 * time.Millisecond}
	client := newTestClient(t, &cfg)

	// But context has longer timeout - should succeed
	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(ctx, req)
	require.NoError(t, err, "request should succeed with context timeout")
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected status 200")
}

func TestDo_ConcurrentRequests(t *testing.T) {
	var requestCount atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	const concurrency = 50
	g, ctx := errgroup.WithContext(t.Context())
	for range concurrency {
		g.Go(func() error {
			resp, err := client.Get(ctx, server.URL)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(concurrency), requestCount.Load())
}

func TestGet(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "expected GET method")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("get success"))
	})

	client := newTestClient(t, nil)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err, "GET failed")
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected status 200")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read body")
	assert.Equal(t, "get success", string(body), "expected body 'get success'")
}

func TestGetBytes(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("image bytes"))
		case "/big":
			_, _ = w.Write(make([]byte, 64))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client := newTestClient(t, &Config{MaxBodySize: 32})

	t.Run("ok", func(t *testing.T) {
		data, err := client.GetBytes(t.Context(), server.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "image bytes", string(data))
	})

	t.Run("non-200 is an http error", func(t *testing.T) {
		_, err := client.GetBytes(t.Context(), server.URL+"/missing")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))

		var ee *errors.EnhancedError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, http.StatusNotFound, ee.GetContext()["status_code"])
	})

	t.Run("oversized body", func(t *testing.T) {
		_, err := client.GetBytes(t.Context(), server.URL+"/big")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
	})
}

func TestCustomTransport(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://images.example.org/leaf.jpg",
		httpmock.NewBytesResponder(http.StatusOK, []byte("leaf")))

	client := newTestClient(t, &Config{Transport: transport, UserAgent: "plantclef-test"})

	data, err := client.GetBytes(t.Context(), "https://images.example.org/leaf.jpg")
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(data))
	assert.Equal(t, 1, transport.GetTotalCallCount())

	_, err = client.GetBytes(t.Context(), "https://images.example.org/unknown.jpg")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestClose(t *testing.T) {
	cfg := DefaultConfig()
	client := New(&cfg)

	// Close should not panic
	client.Close()

	// Multiple closes should be safe
	client.Close()
}
