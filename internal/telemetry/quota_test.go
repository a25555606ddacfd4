// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync"
	"testing"
)

func TestQuotaTracker_DefaultThreshold(t *testing.T) {
	q := NewQuotaTracker(0)
	if q.Threshold() != DefaultQuotaThreshold {
		t.Errorf("Threshold() = %d, want %d", q.Threshold(), DefaultQuotaThreshold)
	}
}

func TestQuotaTracker_IncrementReturnsNewCount(t *testing.T) {
	q := NewQuotaTracker(0)
	for want := 1; want <= 5; want++ {
		if got := q.Increment(); got != want {
			t.Fatalf("Increment() = %d, want %d", got, want)
		}
	}
	if q.Count() != 5 {
		t.Errorf("Count() = %d, want 5", q.Count())
	}
}

func TestQuotaTracker_ThresholdBoundary(t *testing.T) {
	q := NewQuotaTracker(0)

	if q.IsOverThreshold() {
		t.Fatal("over threshold at count 0")
	}
	for i := 1; i <= 50; i++ {
		q.Increment()
		if q.IsOverThreshold() {
			t.Fatalf("over threshold at count %d", i)
		}
	}

	q.Increment()
	if !q.IsOverThreshold() {
		t.Fatal("not over threshold at count 51")
	}
	st := q.Status()
	if st.Count != 51 || st.Threshold != 50 || !st.Over {
		t.Errorf("Status() = %+v", st)
	}
}

func TestQuotaTracker_ConcurrentIncrement(t *testing.T) {
	q := NewQuotaTracker(10)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Increment()
		}()
	}
	wg.Wait()
	if q.Count() != 100 {
		t.Errorf("Count() = %d, want 100", q.Count())
	}
}
