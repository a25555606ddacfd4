// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/logstore"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UsageError reports invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// shownError marks an error the command already reported to the user.
// Execute only maps it to an exit code.
type shownError struct {
	Err error
}

func (e *shownError) Error() string { return e.Err.Error() }

func (e *shownError) Unwrap() error { return e.Err }

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr   *ConfigError
		usage    *UsageError
		auth     *cloud.AuthError
		conn     *cloud.ConnectionError
		timeout  *cloud.TimeoutError
		exportEr *logstore.ExportError
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.Is(err, cloud.ErrMissingKey):
		return ExitConfigError
	case errors.As(err, &auth):
		return ExitAuthError
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &conn):
		return ExitNetworkError
	case errors.As(err, &exportEr) && errors.Is(err, logstore.ErrNoRecords):
		return ExitNotFound
	default:
		return ExitGeneralError
	}
}
