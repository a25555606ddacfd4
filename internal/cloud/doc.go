// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides HTTP clients for the completion and image
// generation providers.
//
// Each client makes exactly one provider call per invocation and maps
// failures onto a small taxonomy (TimeoutError, HTTPError, AuthError,
// ConnectionError, ErrMissingKey). IsTransient tells callers which of
// those are worth retrying. Outgoing requests are paced with a token
// bucket limiter.
//
// # Usage
//
//	client := cloud.NewOpenRouterClient(cfg.Provider.APIKey).WithLogger(logger)
//	text, err := client.Complete(ctx, cloud.Request{
//	    Context:      history.All(),
//	    Query:        "what changed?",
//	    SystemPrompt: cfg.Provider.SystemPrompt,
//	    Model:        cfg.Provider.Model,
//	    Temperature:  cfg.Provider.Temperature,
//	})
package cloud
