// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/model"
)

const okBody = `{
	"id": "test-id",
	"model": "test-model",
	"choices": [{
		"message": {"role": "assistant", "content": "test response"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
}`

func newTestClient(url string) *OpenRouterClient {
	return NewOpenRouterClient("sk-test").WithBaseURL(url).WithRateLimit(0)
}

// =============================================================================
// COMPLETE TESTS
// =============================================================================

func TestComplete_SendsContextAndParsesResponse(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	history := []model.Exchange{
		model.NewExchange(at, "q1", "a1", "m"),
		model.NewFailedExchange(at, "lost", "m", "timeout"),
		model.NewExchange(at, "q2", "a2", "m"),
	}

	text, err := newTestClient(server.URL).Complete(context.Background(), Request{
		Context:      history,
		Query:        "q3",
		SystemPrompt: "be brief",
		Model:        "gpt4o",
		Temperature:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, "test response", text)

	assert.Equal(t, "openai/gpt-4o", got.Model)
	assert.Equal(t, 0.0, got.Temperature)
	want := []chatMessage{
		{"system", "be brief"},
		{"user", "q1"}, {"assistant", "a1"},
		{"user", "q2"}, {"assistant", "a2"},
		{"user", "q3"},
	}
	assert.Equal(t, want, got.Messages)
}

func TestComplete_MissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := NewOpenRouterClient("  ").WithBaseURL(server.URL).Complete(context.Background(), Request{Query: "hi"})
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		wantAuth  bool
		transient bool
	}{
		{http.StatusUnauthorized, `{"error":{"code":401,"message":"bad key"}}`, true, false},
		{http.StatusForbidden, ``, true, false},
		{http.StatusBadRequest, `{"error":{"code":"invalid","message":"malformed"}}`, false, false},
		{http.StatusTooManyRequests, `slow down`, false, false},
		{http.StatusInternalServerError, `oops`, false, true},
		{http.StatusBadGateway, ``, false, true},
		{http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`, false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), Request{Query: "hi"})
			require.Error(t, err)

			var ae *AuthError
			var he *HTTPError
			if tt.wantAuth {
				require.True(t, errors.As(err, &ae), "got %T: %v", err, err)
				assert.Equal(t, tt.status, ae.Status)
			} else {
				require.True(t, errors.As(err, &he), "got %T: %v", err, err)
				assert.Equal(t, tt.status, he.Status)
			}
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestComplete_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).Complete(ctx, Request{Query: "hi"})
	var te *TimeoutError
	require.True(t, errors.As(err, &te), "got %T: %v", err, err)
	assert.True(t, IsTransient(err))
}

func TestComplete_ConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), Request{Query: "hi"})
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
	assert.True(t, IsTransient(err))
}

func TestComplete_CancelledContextIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Complete(ctx, Request{Query: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTransient(err))
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), Request{Query: "hi"})
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.False(t, IsTransient(err))
}

// TestComplete_Concurrent verifies the client can be shared between goroutines.
//
// Run with: go test -race -run TestComplete_Concurrent
func TestComplete_Concurrent(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := client.Complete(context.Background(), Request{Query: fmt.Sprint(n), Model: fmt.Sprintf("m-%d", n%3)})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Complete: %v", err)
	}
	if got := requestCount.Load(); got != 20 {
		t.Errorf("expected 20 requests, got %d", got)
	}
}

func TestComplete_RateLimitPacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	client := NewOpenRouterClient("sk-test").WithBaseURL(server.URL).WithRateLimit(20)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Complete(context.Background(), Request{Query: "hi"})
		require.NoError(t, err)
	}
	// Burst of one: the second and third calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestResolveModel(t *testing.T) {
	tests := map[string]string{
		"":              DefaultModel,
		"gpt4o":         "openai/gpt-4o",
		"GPT4O":         "openai/gpt-4o",
		"vendor/custom": "vendor/custom",
		"  sonnet  ":    "anthropic/claude-3.5-sonnet",
	}
	for in, want := range tests {
		if got := ResolveModel(in); got != want {
			t.Errorf("ResolveModel(%q) = %q, want %q", in, got, want)
		}
	}
}
