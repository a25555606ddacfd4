// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locale holds every user-visible string the assistant core emits.
//
// Strings are looked up by Key in a table keyed by language tag. Adding a
// locale is a data change: register another Catalog, no code branches.
// Only English is currently supported.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

// Key identifies a message.
type Key string

const (
	ClearSuccess      Key = "clear_success"
	HistoryTitle      Key = "history_title"
	NoHistory         Key = "no_history"
	ExportSuccess     Key = "export_success"
	ExportFailed      Key = "export_failed"
	BlankPrompt       Key = "blank_prompt"
	BlankPromptHint   Key = "blank_prompt_hint"
	RequestFailed     Key = "request_failed"
	ResponseFrom      Key = "response_from"
	ImageGenerated    Key = "image_generated"
	ImageFailed       Key = "image_failed"
	ImagePromptNeeded Key = "image_prompt_needed"
	ImageKeyMissing   Key = "image_key_missing"
	ImageKeyHint      Key = "image_key_hint"
	LogWriteWarning   Key = "log_write_warning"
	LoggingDisabled   Key = "logging_disabled"
	QuotaWarning      Key = "quota_warning"
	QuotaWarningBody  Key = "quota_warning_body"
	InternalError     Key = "internal_error"
	PathLabel         Key = "path_label"
	UserLabel         Key = "user_label"
	AssistantLabel    Key = "assistant_label"
)

// Catalog maps keys to format strings for one language.
type Catalog map[Key]string

var english = Catalog{
	ClearSuccess:      "Conversation history cleared",
	HistoryTitle:      "Recent conversation history",
	NoHistory:         "No history available.",
	ExportSuccess:     "Full log exported",
	ExportFailed:      "Export failed",
	BlankPrompt:       "Type a prompt to chat",
	BlankPromptHint:   `or try "clear history", "view history", "export full log", "generate image <prompt>"`,
	RequestFailed:     "Request failed",
	ResponseFrom:      "Response from %s",
	ImageGenerated:    "Image generated",
	ImageFailed:       "Image generation failed",
	ImagePromptNeeded: "Describe the image after \"generate image\"",
	ImageKeyMissing:   "Image generation requires an image API key",
	ImageKeyHint:      "Set image_api_key in the configuration",
	LogWriteWarning:   "Exchange not saved to log",
	LoggingDisabled:   "Logging disabled for this session",
	QuotaWarning:      "Quota warning",
	QuotaWarningBody:  "%d calls this session exceed the advisory limit of %d",
	InternalError:     "Internal error",
	PathLabel:         "Path: %s",
	UserLabel:         "User",
	AssistantLabel:    "Assistant",
}

// Default is the only supported language.
var Default = language.English

// catalogs is keyed by base language ("en").
var catalogs = map[string]Catalog{
	"en": english,
}

// Supported reports whether tag resolves to a registered catalog.
func Supported(tag language.Tag) bool {
	_, ok := catalogs[baseOf(tag)]
	return ok
}

// Parse resolves a configured language string to a supported tag.
func Parse(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q: %w", s, err)
	}
	if !Supported(tag) {
		return language.Und, fmt.Errorf("unsupported language %q", s)
	}
	return tag, nil
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// Messages formats strings for one language.
type Messages struct {
	tag     language.Tag
	catalog Catalog
}

// For returns the messages for tag, falling back to English.
func For(tag language.Tag) Messages {
	if c, ok := catalogs[baseOf(tag)]; ok {
		return Messages{tag: tag, catalog: c}
	}
	return Messages{tag: Default, catalog: english}
}

// Tag returns the language of the messages.
func (m Messages) Tag() language.Tag {
	return m.tag
}

// Get formats the message for key. Unknown keys render as the key itself.
func (m Messages) Get(key Key, args ...any) string {
	format, ok := m.catalog[key]
	if !ok {
		format, ok = english[key]
	}
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
