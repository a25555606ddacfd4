// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for parley.
//
// TOML is the native format; YAML and JSON files are accepted as well.
// Values start from built-in defaults, are overlaid by the file, then by
// environment variables, and are validated as a whole.
//
// # Configuration Precedence
//
//   - Environment variables (PARLEY_*)
//   - ~/.parley/config.toml, config.yaml, config.yml or config.json (first found)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	width := cfg.UI.WrapWidth(theme.WrapWidth)
package config
