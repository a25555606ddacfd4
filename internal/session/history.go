// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/model"
)

// ErrInvalidExchange is returned when either side of an exchange is blank.
var ErrInvalidExchange = errors.New("invalid exchange: query and response must be non-empty")

// ViewLimit is how many exchanges the view command surfaces.
const ViewLimit = 5

// =============================================================================
// SESSION IDENTITY
// =============================================================================

// Session identifies one process lifetime.
type Session struct {
	ID        string
	StartedAt time.Time
}

// New creates a session stamped with now.
func New(now time.Time) Session {
	return Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		StartedAt: now.UTC(),
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// History is the ordered sequence of exchanges for the current run.
// It is never persisted directly; the log store records exchanges.
type History struct {
	mu        sync.RWMutex
	exchanges []model.Exchange
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds ex to the end of the history.
func (h *History) Append(ex model.Exchange) error {
	if !ex.Complete() {
		return ErrInvalidExchange
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = append(h.exchanges, ex)
	return nil
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = nil
}

// Recent returns the last min(n, Len()) exchanges, oldest first.
func (h *History) Recent(n int) []model.Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || len(h.exchanges) == 0 {
		return []model.Exchange{}
	}
	if n > len(h.exchanges) {
		n = len(h.exchanges)
	}
	out := make([]model.Exchange, n)
	copy(out, h.exchanges[len(h.exchanges)-n:])
	return out
}

// All returns a copy of every exchange, oldest first.
func (h *History) All() []model.Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.Exchange, len(h.exchanges))
	copy(out, h.exchanges)
	return out
}

// Len returns the number of exchanges.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.exchanges)
}
