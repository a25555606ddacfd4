// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ErrMissingKey indicates a provider call was attempted without an API key.
var ErrMissingKey = errors.New("API key not configured")

// TimeoutError reports a request that did not finish within its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response other than an auth failure.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
}

// AuthError reports a rejected API key (HTTP 401 or 403).
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Status, e.Message)
}

// ConnectionError reports a transport failure before a response arrived.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsTransient reports whether a retry may succeed: timeouts, HTTP 5xx and
// dropped or refused connections. Rate limiting (429) is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500 && he.Status < 600
	}
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// statusError maps an error response to the taxonomy.
func statusError(status int, code, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Status: status, Message: message}
	default:
		return &HTTPError{Status: status, Code: code, Message: message}
	}
}

// transportError classifies an error from http.Client.Do. Cancellation of
// ctx is returned as the context error so callers can tell it apart.
func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return &ConnectionError{Err: err}
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return &ConnectionError{Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
