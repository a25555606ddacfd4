// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a chat message sent to a provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// EXCHANGE TYPE
// =============================================================================

// Exchange is one user query paired with one assistant response.
// Exchanges are values: once built they are never modified, only copied.
type Exchange struct {
	// Timestamp is when the exchange completed, always UTC.
	Timestamp time.Time `json:"timestamp"`

	UserQuery         string `json:"user_query"`
	AssistantResponse string `json:"assistant_response"`

	// Model is the provider model that produced the response.
	Model string `json:"model"`

	// ErrorNote is set when the request failed; AssistantResponse is then empty.
	ErrorNote string `json:"error_note,omitempty"`
}

// NewExchange builds a successful exchange stamped with the given time.
func NewExchange(at time.Time, query, response, modelName string) Exchange {
	return Exchange{
		Timestamp:         at.UTC(),
		UserQuery:         query,
		AssistantResponse: response,
		Model:             modelName,
	}
}

// NewFailedExchange builds an exchange recording a failed request.
func NewFailedExchange(at time.Time, query, modelName, note string) Exchange {
	return Exchange{
		Timestamp: at.UTC(),
		UserQuery: query,
		Model:     modelName,
		ErrorNote: note,
	}
}

// Failed reports whether the exchange records a failed request.
func (e Exchange) Failed() bool {
	return e.ErrorNote != ""
}

// Complete reports whether both sides of the pair carry text.
func (e Exchange) Complete() bool {
	return strings.TrimSpace(e.UserQuery) != "" && strings.TrimSpace(e.AssistantResponse) != ""
}

// ChatMessage is a single role-tagged message in a provider request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BuildMessages threads a system prompt, prior exchanges and the new query into
// the flat message list chat-completion providers expect.
func BuildMessages(systemPrompt string, history []Exchange, query string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history)*2+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	for _, ex := range history {
		if ex.Failed() {
			continue
		}
		messages = append(messages,
			ChatMessage{Role: RoleUser, Content: ex.UserQuery},
			ChatMessage{Role: RoleAssistant, Content: ex.AssistantResponse},
		)
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: query})
	return messages
}
