// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/util"
)

// Resolution is the outcome of picking a log directory at startup.
type Resolution struct {
	Dir      string
	Disabled bool
	// Warning is set when the configured directory could not be used.
	Warning string
}

// DefaultDir returns ~/.parley/logs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parley", "logs"), nil
}

// ResolveDir picks the first writable directory from the configured path
// and the default location. When neither works, logging is disabled for
// the session and Warning explains why.
func ResolveDir(configured string, logger *zap.Logger) Resolution {
	if logger == nil {
		logger = zap.NewNop()
	}

	var tried []string
	if configured != "" {
		dir, err := util.ExpandHome(configured)
		if err == nil {
			err = probeDir(dir)
		}
		if err == nil {
			return Resolution{Dir: dir}
		}
		logger.Warn("configured log directory not usable", zap.String("dir", configured), zap.Error(err))
		tried = append(tried, configured)
	}

	def, err := DefaultDir()
	if err == nil {
		err = probeDir(def)
	}
	if err == nil {
		res := Resolution{Dir: def}
		if len(tried) > 0 {
			res.Warning = fmt.Sprintf("log directory %s is not writable; using %s", configured, def)
		}
		return res
	}
	logger.Warn("default log directory not usable", zap.String("dir", def), zap.Error(err))
	if def != "" {
		tried = append(tried, def)
	}

	return Resolution{
		Disabled: true,
		Warning:  fmt.Sprintf("logging disabled: no writable log directory (tried %s)", strings.Join(tried, ", ")),
	}
}

// probeDir creates dir if needed and proves it accepts new files.
func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
