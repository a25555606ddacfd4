// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/locale"
	"github.com/jeranaias/parley/internal/telemetry"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete parley configuration. It is loaded once at startup
// and treated as read-only afterwards.
type Config struct {
	Provider ProviderConfig `toml:"provider" json:"provider" yaml:"provider"`
	Image    ImageConfig    `toml:"image" json:"image" yaml:"image"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging"`
	UI       UIConfig       `toml:"ui" json:"ui" yaml:"ui"`
	Usage    UsageConfig    `toml:"usage" json:"usage" yaml:"usage"`
}

// ProviderConfig configures the chat completion provider.
type ProviderConfig struct {
	APIKey       string  `toml:"api_key" json:"api_key" yaml:"api_key"`
	Model        string  `toml:"model" json:"model" yaml:"model"`
	SystemPrompt string  `toml:"system_prompt" json:"system_prompt" yaml:"system_prompt"`
	Temperature  float64 `toml:"temperature" json:"temperature" yaml:"temperature"`
	BaseURL      string  `toml:"base_url" json:"base_url" yaml:"base_url"`

	// TimeoutSecs bounds each request attempt.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`

	// RateLimit is requests per second; 0 disables pacing.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
}

// ImageConfig configures the image generation provider.
type ImageConfig struct {
	APIKey   string `toml:"api_key" json:"api_key" yaml:"api_key"`
	Endpoint string `toml:"endpoint" json:"endpoint" yaml:"endpoint"`
}

// LoggingConfig configures conversation logs and diagnostics.
type LoggingConfig struct {
	// Dir holds the conversation logs. Empty means ~/.parley/logs.
	Dir string `toml:"dir" json:"dir" yaml:"dir"`

	// Level is one of DEBUG, INFO, WARNING, ERROR.
	Level string `toml:"level" json:"level" yaml:"level"`

	// RetentionDays deletes logs older than this at startup; 0 keeps all.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`

	// IncludePrevious makes exports merge earlier sessions' logs.
	IncludePrevious bool `toml:"include_previous" json:"include_previous" yaml:"include_previous"`
}

// UIConfig configures presentation.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme" yaml:"theme"`
	Language string `toml:"language" json:"language" yaml:"language"`

	// LineWrap is -1 for the theme default, 0 for no wrapping, or a column count.
	LineWrap    int  `toml:"line_wrap" json:"line_wrap" yaml:"line_wrap"`
	WrapEnabled bool `toml:"wrap_enabled" json:"wrap_enabled" yaml:"wrap_enabled"`
}

// UsageConfig configures the advisory quota.
type UsageConfig struct {
	QuotaThreshold int `toml:"quota_threshold" json:"quota_threshold" yaml:"quota_threshold"`
}

// Logging levels accepted by LoggingConfig.Level.
var validLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true}

// Default returns a new Config with all default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model:       cloud.DefaultModel,
			Temperature: 0.7,
			BaseURL:     cloud.DefaultOpenRouterURL,
			TimeoutSecs: 30,
			RateLimit:   cloud.DefaultRateLimit,
		},
		Image: ImageConfig{
			Endpoint: cloud.DefaultImageURL,
		},
		Logging: LoggingConfig{
			Level:         "INFO",
			RetentionDays: 30,
		},
		UI: UIConfig{
			Theme:       string(styles.Dark),
			Language:    "en",
			LineWrap:    -1,
			WrapEnabled: true,
		},
		Usage: UsageConfig{
			QuotaThreshold: telemetry.DefaultQuotaThreshold,
		},
	}
}

// WrapWidth resolves the effective wrap column for a theme default.
// Zero means do not wrap.
func (u UIConfig) WrapWidth(themeDefault int) int {
	switch {
	case !u.WrapEnabled || u.LineWrap == 0:
		return 0
	case u.LineWrap < 0:
		return themeDefault
	default:
		return u.LineWrap
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the parley configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// candidatePaths lists the files Load looks for, in order.
func candidatePaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found in ~/.parley (TOML, then YAML,
// then JSON), falling back to defaults. Environment overrides are applied
// last and the result is validated.
func Load() (*Config, error) {
	paths, err := candidatePaths()
	if err != nil {
		return finish(Default())
	}
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr == nil {
			return LoadFromPath(p)
		}
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. The format is
// chosen by extension: .json, .yaml/.yml, anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills settings where an empty value means "unset".
func (c *Config) SetDefaults() {
	d := Default()
	if strings.TrimSpace(c.Provider.Model) == "" {
		c.Provider.Model = d.Provider.Model
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = d.Provider.BaseURL
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}
	if c.Image.Endpoint == "" {
		c.Image.Endpoint = d.Image.Endpoint
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	if c.UI.Language == "" {
		c.UI.Language = d.UI.Language
	}
	if c.Usage.QuotaThreshold == 0 {
		c.Usage.QuotaThreshold = d.Usage.QuotaThreshold
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions, atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# parley configuration file")
	fmt.Fprintln(&buf, "# Generated by parley - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 1 {
		add("provider.temperature", "must be between 0 and 1, got %v", c.Provider.Temperature)
	}
	if c.Provider.TimeoutSecs < 0 {
		add("provider.timeout_secs", "must not be negative")
	}
	if c.Provider.RateLimit < 0 {
		add("provider.rate_limit", "must not be negative")
	}
	if u, err := url.Parse(c.Provider.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		add("provider.base_url", "invalid URL %q", c.Provider.BaseURL)
	}
	if u, err := url.Parse(c.Image.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		add("image.endpoint", "invalid URL %q", c.Image.Endpoint)
	}

	if !validLevels[strings.ToUpper(c.Logging.Level)] {
		add("logging.level", "invalid level '%s', must be one of: DEBUG, INFO, WARNING, ERROR", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		add("logging.retention_days", "must not be negative")
	}

	if _, err := styles.Lookup(c.UI.Theme); err != nil {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light", c.UI.Theme)
	}
	if _, err := locale.Parse(c.UI.Language); err != nil {
		add("ui.language", "%v", err)
	}
	if c.UI.LineWrap < -1 {
		add("ui.line_wrap", "must be -1 (theme default), 0 (off) or a positive width")
	}

	if c.Usage.QuotaThreshold < 0 {
		add("usage.quota_threshold", "must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - PARLEY_API_KEY: provider.api_key
//   - PARLEY_IMAGE_API_KEY: image.api_key
//   - PARLEY_MODEL: provider.model
//   - PARLEY_LOG_DIR: logging.dir
//   - PARLEY_LOG_LEVEL: logging.level
//   - PARLEY_THEME: ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PARLEY_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("PARLEY_IMAGE_API_KEY"); v != "" {
		c.Image.APIKey = v
	}
	if v := os.Getenv("PARLEY_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("PARLEY_LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PARLEY_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path (e.g., "logging.retention_days").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by key path, converting strings to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// setFieldValue sets a reflect.Value from an interface value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key path in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy with API keys masked.
func (c *Config) Redacted() Config {
	safe := *c
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	if safe.Image.APIKey != "" {
		safe.Image.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns TOML with secrets redacted, safe for logs and display.
func (c *Config) String() string {
	safe := c.Redacted()
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
