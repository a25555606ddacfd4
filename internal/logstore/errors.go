// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"errors"
	"fmt"
)

var (
	// ErrLoggingDisabled is returned by operations that need a log directory
	// when none was writable at startup.
	ErrLoggingDisabled = errors.New("logging is disabled for this session")

	// ErrNoRecords is returned when an export finds nothing to export.
	ErrNoRecords = errors.New("no log records to export")
)

// LogWriteError reports a failed append to the active log file.
// Callers treat it as a warning: the chat response is still delivered.
type LogWriteError struct {
	Path string
	Err  error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("write log %s: %v", e.Path, e.Err)
}

func (e *LogWriteError) Unwrap() error {
	return e.Err
}

// ExportError reports a failed export. It is terminal for the request.
type ExportError struct {
	Target string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("export failed: %v", e.Err)
	}
	return fmt.Sprintf("export to %s failed: %v", e.Target, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
