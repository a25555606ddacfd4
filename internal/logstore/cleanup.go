// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CleanupReport summarizes a retention pass.
type CleanupReport struct {
	Scanned int
	Deleted []string
	Failed  []string
}

// Cleanup deletes session and export logs whose modification time is older
// than days. A non-positive days disables cleanup. Files that cannot be
// removed are logged and skipped. The active session file is never removed.
func (s *Store) Cleanup(days int) (CleanupReport, error) {
	var report CleanupReport
	if days <= 0 || s.disabled {
		return report, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return report, err
	}

	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !(isSessionFile(name) || isExportFile(name)) {
			continue
		}
		path := filepath.Join(s.dir, name)
		if path == s.activePath {
			continue
		}
		report.Scanned++

		info, err := e.Info()
		if err != nil {
			report.Failed = append(report.Failed, path)
			s.logger.Warn("stat log file", zap.String("path", path), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			report.Failed = append(report.Failed, path)
			s.logger.Warn("remove old log file", zap.String("path", path), zap.Error(err))
			continue
		}
		report.Deleted = append(report.Deleted, path)
	}

	if len(report.Deleted) > 0 || len(report.Failed) > 0 {
		s.logger.Info("log cleanup finished",
			zap.Int("days", days),
			zap.Int("scanned", report.Scanned),
			zap.Int("deleted", len(report.Deleted)),
			zap.Int("failed", len(report.Failed)))
	}
	return report, nil
}
