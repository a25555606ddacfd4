// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the assistant core.
//
// # Key Types
//
//   - Exchange: one user query paired with one assistant response plus metadata
//   - ChatMessage: role-tagged message sent to a completion provider
//   - Item: a row returned to the host shell, with an optional on-activate Action
//
// # Usage
//
//	ex := model.NewExchange(time.Now(), "hi", "hello!", "openai/gpt-4o")
//	msgs := model.BuildMessages(systemPrompt, history, "next question")
package model
