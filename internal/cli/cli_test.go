// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/assistant"
	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/logstore"
	"github.com/jeranaias/parley/internal/retry"
)

// =============================================================================
// HARNESS
// =============================================================================

type stubCompleter struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, req cloud.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "answer: " + req.Query, nil
}

// isolate points HOME at a temp dir and clears environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, v := range []string{"PARLEY_API_KEY", "PARLEY_IMAGE_API_KEY", "PARLEY_MODEL", "PARLEY_LOG_DIR", "PARLEY_LOG_LEVEL", "PARLEY_THEME"} {
		t.Setenv(v, "")
	}
	return home
}

type result struct {
	out, errOut string
	err         error
}

func run(t *testing.T, comp cloud.Completer, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer

	a := newApp(strings.NewReader(stdin), &out, &errOut)
	a.interactive = func() bool { return false }
	a.newOrchestrator = func(cfg *config.Config, logger *zap.Logger) *assistant.Orchestrator {
		policy := retry.DefaultPolicy(cloud.IsTransient)
		policy.Sleep = func(context.Context, time.Duration) error { return nil }
		return assistant.New(cfg, assistant.Options{Completer: comp, Logger: logger, Policy: &policy})
	}

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func sessionLogs(t *testing.T, home string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(home, ".parley", "logs", "session_*.md"))
	require.NoError(t, err)
	return matches
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsResponseAndLogs(t *testing.T) {
	home := isolate(t)
	comp := &stubCompleter{}

	res := run(t, comp, "", "ask", "what", "is", "go?")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Response from openai/gpt-4o-mini")
	assert.Contains(t, res.out, "answer: what is go?")
	assert.Equal(t, 1, comp.calls)
	assert.Len(t, sessionLogs(t, home), 1)
}

func TestAsk_JSON(t *testing.T) {
	isolate(t)
	res := run(t, &stubCompleter{}, "", "--json", "ask", "hi")
	require.NoError(t, res.err)

	var resp struct {
		Success bool       `json:"success"`
		Data    []jsonItem `json:"data"`
		Command string     `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ask", resp.Command)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "response", resp.Data[0].Kind)
	assert.Equal(t, "answer: hi", resp.Data[0].Copy)
}

func TestAsk_FailureSetsExitCode(t *testing.T) {
	isolate(t)
	comp := &stubCompleter{err: &cloud.AuthError{Status: 401}}

	res := run(t, comp, "", "ask", "hi")
	require.Error(t, res.err)

	var shown *shownError
	assert.True(t, errors.As(res.err, &shown), "failure is already printed")
	assert.Contains(t, res.out, "Request failed")
	assert.Equal(t, ExitGeneralError, ExitCode(res.err))
	assert.Equal(t, 1, comp.calls)
}

func TestAsk_CommandPhrase(t *testing.T) {
	isolate(t)
	comp := &stubCompleter{}
	res := run(t, comp, "", "ask", "view", "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "No history available.")
	assert.Zero(t, comp.calls)
}

func TestAsk_RequiresQuery(t *testing.T) {
	isolate(t)
	res := run(t, &stubCompleter{}, "", "ask")
	assert.Error(t, res.err)
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_PipedSession(t *testing.T) {
	isolate(t)
	comp := &stubCompleter{}

	input := "first question\n\n  \nview history\nexit\nnever sent\n"
	res := run(t, comp, input, "chat")
	require.NoError(t, res.err)

	assert.Equal(t, 1, comp.calls)
	assert.Contains(t, res.out, "answer: first question")
	// Once in the response, twice in the view history item.
	assert.Equal(t, 3, strings.Count(res.out, "first question"))
	assert.NotContains(t, res.out, "never sent")
}

func TestChat_EOFEndsSession(t *testing.T) {
	isolate(t)
	comp := &stubCompleter{}
	res := run(t, comp, "one\ntwo", "chat")
	require.NoError(t, res.err)
	assert.Equal(t, 2, comp.calls)
}

// =============================================================================
// LOGS
// =============================================================================

func TestLogs_ShowAndExport(t *testing.T) {
	home := isolate(t)
	comp := &stubCompleter{}
	require.NoError(t, run(t, comp, "", "ask", "hello there").err)

	show := run(t, comp, "", "logs", "show")
	require.NoError(t, show.err)
	assert.Contains(t, show.out, "User: hello there")
	assert.Contains(t, show.out, "Assistant: answer: hello there")

	exp := run(t, comp, "", "logs", "export")
	require.NoError(t, exp.err)
	path := strings.TrimSpace(exp.out)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "export_"))
	assert.Equal(t, filepath.Join(home, ".parley", "logs"), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**User:** hello there")
}

func TestLogs_ExportTargetDir(t *testing.T) {
	isolate(t)
	comp := &stubCompleter{}
	require.NoError(t, run(t, comp, "", "ask", "hi").err)

	target := t.TempDir()
	res := run(t, comp, "", "--json", "logs", "export", "--dir", target)
	require.NoError(t, res.err)

	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, target, filepath.Dir(resp.Data["path"]))
}

func TestLogs_ExportEmpty(t *testing.T) {
	isolate(t)
	res := run(t, &stubCompleter{}, "", "logs", "export")
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, logstore.ErrNoRecords))
	assert.Equal(t, ExitNotFound, ExitCode(res.err))
}

func TestLogs_ShowEmpty(t *testing.T) {
	isolate(t)
	res := run(t, &stubCompleter{}, "", "logs", "show", "-n", "3")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "No logged exchanges.")

	res = run(t, &stubCompleter{}, "", "logs", "show", "-n", "0")
	assert.Equal(t, ExitUsageError, ExitCode(res.err))
}

func TestLogs_Cleanup(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".parley", "logs")
	require.NoError(t, os.MkdirAll(dir, 0755))

	old := filepath.Join(dir, "session_20200101_000000_deadbeef.md")
	fresh := filepath.Join(dir, "session_20991231_000000_cafebabe.md")
	for _, p := range []string{old, fresh} {
		require.NoError(t, os.WriteFile(p, []byte("# Conversation Log\n"), 0644))
	}
	past := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(old, past, past))

	res := run(t, &stubCompleter{}, "", "logs", "cleanup", "--days", "2")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "1 of 2 log files removed")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitSetGet(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".parley", "config.toml")

	res := run(t, nil, "", "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, path, strings.TrimSpace(res.out))

	require.NoError(t, run(t, nil, "", "config", "init").err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again := run(t, nil, "", "config", "init")
	assert.Equal(t, ExitUsageError, ExitCode(again.err))
	require.NoError(t, run(t, nil, "", "config", "init", "--force").err)

	require.NoError(t, run(t, nil, "", "config", "set", "usage.quota_threshold", "10").err)
	get := run(t, nil, "", "config", "get", "usage.quota_threshold")
	require.NoError(t, get.err)
	assert.Equal(t, "10", strings.TrimSpace(get.out))

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Usage.QuotaThreshold)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	isolate(t)

	tests := []struct {
		key, value string
	}{
		{"provider.temperature", "1.5"},
		{"ui.theme", "neon"},
		{"no.such_key", "x"},
		{"logging", "x"},
		{"logging.retention_days", "many"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			res := run(t, nil, "", "config", "set", tc.key, tc.value)
			require.Error(t, res.err)
			assert.Equal(t, ExitUsageError, ExitCode(res.err))
		})
	}
}

func TestConfig_ShowRedactsKeys(t *testing.T) {
	isolate(t)
	t.Setenv("PARLEY_API_KEY", "sk-secret-value")

	res := run(t, nil, "", "config", "show")
	require.NoError(t, res.err)
	assert.NotContains(t, res.out, "sk-secret-value")
	assert.Contains(t, res.out, "[REDACTED]")

	get := run(t, nil, "", "config", "get", "provider.api_key")
	require.NoError(t, get.err)
	assert.Equal(t, "[REDACTED]", strings.TrimSpace(get.out))
}

func TestConfig_Keys(t *testing.T) {
	isolate(t)
	res := run(t, nil, "", "config", "keys")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "logging.retention_days\n")
	assert.Contains(t, res.out, "provider.model\n")
}

func TestInvalidConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".parley")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	res := run(t, nil, "", "config", "show")
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, ExitCode(res.err))
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{&UsageError{Message: "bad"}, ExitUsageError},
		{&ConfigError{Err: errors.New("x")}, ExitConfigError},
		{cloud.ErrMissingKey, ExitConfigError},
		{&cloud.AuthError{Status: 403}, ExitAuthError},
		{&cloud.TimeoutError{Op: "x", Err: context.DeadlineExceeded}, ExitTimeoutError},
		{&cloud.ConnectionError{Err: errors.New("refused")}, ExitNetworkError},
		{fmt.Errorf("wrapped: %w", &cloud.AuthError{Status: 401}), ExitAuthError},
		{&logstore.ExportError{Err: logstore.ErrNoRecords}, ExitNotFound},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ExitCode(tc.err), "%v", tc.err)
	}
}

func TestLogs_Search(t *testing.T) {
	home := isolate(t)
	comp := &stubCompleter{}
	require.NoError(t, run(t, comp, "", "ask", "tell me about goroutines").err)
	require.NoError(t, run(t, comp, "", "ask", "pasta recipes").err)

	res := run(t, comp, "", "logs", "search", "goroutines")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "User: tell me about goroutines")
	assert.NotContains(t, res.out, "pasta")
	assert.FileExists(t, filepath.Join(home, ".parley", "index.db"))

	none := run(t, comp, "", "logs", "search", "nothing-like-this")
	require.NoError(t, none.err)
	assert.Contains(t, none.out, "No matches.")
}
