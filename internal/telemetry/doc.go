// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks local usage for parley.
//
// # Key Types
//
//   - QuotaTracker: per-process count of completed chat calls against an
//     advisory threshold
//   - Status: snapshot of the counter for display
//
// # Usage
//
//	q := telemetry.NewQuotaTracker(cfg.Usage.QuotaThreshold)
//	n := q.Increment()
//	if q.IsOverThreshold() {
//	    // show a warning; nothing is blocked
//	}
//
// Nothing here leaves the machine.
package telemetry
