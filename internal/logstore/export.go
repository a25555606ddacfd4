// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/util"
)

// ExportFull writes every record of the export inputs into a new
// export_<timestamp>_<suffix>.md file under targetDir (the log directory when
// empty) and returns its absolute path. The file is written atomically.
func (s *Store) ExportFull(targetDir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return "", &ExportError{Err: ErrLoggingDisabled}
	}

	records, err := s.recordsLocked()
	if err != nil {
		return "", &ExportError{Err: err}
	}
	if len(records) == 0 {
		return "", &ExportError{Err: ErrNoRecords}
	}

	if targetDir == "" {
		targetDir = s.dir
	}
	targetDir, err = util.ExpandHome(targetDir)
	if err != nil {
		return "", &ExportError{Target: targetDir, Err: err}
	}

	now := s.now().UTC()
	path := filepath.Join(targetDir, exportPrefix+now.Format(fileTimeFmt)+"_"+randomSuffix()+logExt)

	var buf bytes.Buffer
	writeFileHeader(&buf, "Conversation Export", [][2]string{
		{"Exported", now.Format(time.RFC3339)},
		{"Sections", strconv.Itoa(len(records))},
	})
	for _, rec := range records {
		writeSection(&buf, rec.Exchange, rec.Metadata)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", &ExportError{Target: targetDir, Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.logger.Info("log exported", zap.String("path", abs), zap.Int("sections", len(records)))
	return abs, nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano()%0xffffffff, 16)
	}
	return hex.EncodeToString(b)
}
