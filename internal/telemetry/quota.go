// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import "sync"

// DefaultQuotaThreshold is the advisory number of completed chat calls per session.
const DefaultQuotaThreshold = 50

// QuotaTracker counts completed chat exchanges for the current process.
//
// The signal is advisory only: it is a local count, not the provider's real
// quota or rate limit, and nothing is blocked when it is exceeded. The count
// lives for the process lifetime and resets on restart.
type QuotaTracker struct {
	mu        sync.Mutex
	count     int
	threshold int
}

// NewQuotaTracker creates a tracker. A threshold of zero or less uses
// DefaultQuotaThreshold.
func NewQuotaTracker(threshold int) *QuotaTracker {
	if threshold <= 0 {
		threshold = DefaultQuotaThreshold
	}
	return &QuotaTracker{threshold: threshold}
}

// Increment records one completed exchange and returns the new count.
func (q *QuotaTracker) Increment() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.count++
	return q.count
}

// Count returns the number of completed exchanges so far.
func (q *QuotaTracker) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Threshold returns the advisory limit.
func (q *QuotaTracker) Threshold() int {
	return q.threshold
}

// IsOverThreshold reports whether the count has passed the advisory limit.
func (q *QuotaTracker) IsOverThreshold() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count > q.threshold
}

// Status is a snapshot for display.
type Status struct {
	Count     int
	Threshold int
	Over      bool
}

// Status returns a consistent snapshot of the counter.
func (q *QuotaTracker) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{Count: q.count, Threshold: q.threshold, Over: q.count > q.threshold}
}
