// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer img-key", r.Header.Get("Authorization"))
		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a red fox", req.Inputs)
		w.Write([]byte(`{"url": "https://img.example/fox.png"}`))
	}))
	defer server.Close()

	url, err := NewImageClient(server.URL).WithRateLimit(0).GenerateImage(context.Background(), "a red fox", "img-key")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/fox.png", url)
}

func TestGenerateImage_MissingKey(t *testing.T) {
	_, err := NewImageClient("http://127.0.0.1:1").GenerateImage(context.Background(), "fox", "")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestGenerateImage_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"provider error", http.StatusServiceUnavailable, `{"error": "model loading"}`, true},
		{"auth", http.StatusForbidden, `{"error": "nope"}`, false},
		{"no url", http.StatusOK, `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewImageClient(server.URL).WithRateLimit(0).GenerateImage(context.Background(), "fox", "k")
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}
