// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultImageURL is the default image generation endpoint.
const DefaultImageURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"

// ImageGenerator turns a prompt into an image URL or path.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, apiKey string) (string, error)
}

type imageRequest struct {
	Inputs string `json:"inputs"`
}

type imageResponse struct {
	URL   string `json:"url"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ImageClient calls an image generation endpoint that answers with JSON
// containing a "url" (or "path") field.
type ImageClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewImageClient creates a client for endpoint, or DefaultImageURL when empty.
func NewImageClient(endpoint string) *ImageClient {
	if endpoint == "" {
		endpoint = DefaultImageURL
	}
	return &ImageClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: sharedTransport},
		limiter:    newLimiter(DefaultRateLimit),
		logger:     zap.NewNop(),
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *ImageClient) WithHTTPClient(hc *http.Client) *ImageClient {
	c.httpClient = hc
	return c
}

// WithRateLimit paces requests to perSecond. Zero or less disables pacing.
func (c *ImageClient) WithRateLimit(perSecond float64) *ImageClient {
	c.limiter = newLimiter(perSecond)
	return c
}

// WithLogger sets the diagnostic logger.
func (c *ImageClient) WithLogger(logger *zap.Logger) *ImageClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// GenerateImage sends one generation request.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrMissingKey
	}
	if err := waitLimiter(ctx, c.limiter); err != nil {
		return "", err
	}

	payload, err := json.Marshal(imageRequest{Inputs: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, "image request", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return "", transportError(ctx, "read response", err)
	}
	c.logger.Debug("image response received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ir imageResponse
		if json.Unmarshal(data, &ir) == nil && ir.Error != "" {
			return "", statusError(resp.StatusCode, "", ir.Error)
		}
		return "", handleErrorResponse(resp.StatusCode, data)
	}

	var ir imageResponse
	if err := json.Unmarshal(data, &ir); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	switch {
	case ir.URL != "":
		return ir.URL, nil
	case ir.Path != "":
		return ir.Path, nil
	default:
		return "", &HTTPError{Status: resp.StatusCode, Message: "response contained no image url"}
	}
}
