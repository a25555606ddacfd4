// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
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

	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/logstore"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/retry"
	"github.com/jeranaias/parley/internal/session"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeCompleter struct {
	mu       sync.Mutex
	script   []error
	reply    func(req cloud.Request) string
	requests []cloud.Request
	block    func(ctx context.Context) error
}

func (f *fakeCompleter) Complete(ctx context.Context, req cloud.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var err error
	if len(f.script) > 0 {
		err = f.script[0]
		f.script = f.script[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		if err := block(ctx); err != nil {
			return "", err
		}
	}
	if err != nil {
		return "", err
	}
	if f.reply != nil {
		return f.reply(req), nil
	}
	return "answer to " + req.Query, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeImages struct{ calls int }

func (f *fakeImages) GenerateImage(context.Context, string, string) (string, error) {
	f.calls++
	return "https://img.example/x.png", nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

var testStart = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	orch   *Orchestrator
	comp   *fakeCompleter
	images *fakeImages
	sleeps *sleepRecorder
	store  *logstore.Store
	dir    string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Logging.Dir = dir
	cfg.Logging.RetentionDays = 0
	cfg.Provider.Model = "test/model"
	cfg.Provider.SystemPrompt = "be brief"
	if mutate != nil {
		mutate(cfg)
	}

	clock := testStart
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	h := &harness{
		comp:   &fakeCompleter{},
		images: &fakeImages{},
		sleeps: &sleepRecorder{},
		dir:    dir,
	}
	h.store = logstore.New(logstore.Options{Dir: dir, Session: session.New(testStart)})

	policy := retry.DefaultPolicy(cloud.IsTransient)
	policy.Sleep = h.sleeps.sleep

	h.orch = New(cfg, Options{
		Completer: h.comp,
		Images:    h.images,
		Store:     h.store,
		Policy:    &policy,
		Now:       now,
	})
	return h
}

func (h *harness) records(t *testing.T) []logstore.Record {
	t.Helper()
	recs, err := h.store.Records()
	require.NoError(t, err)
	return recs
}

func chatN(t *testing.T, h *harness, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		items := h.orch.Handle(context.Background(), fmt.Sprintf("question %d", i))
		require.NotEmpty(t, items)
		require.Equal(t, model.ItemResponse, items[0].Kind, "%+v", items)
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestChat_Success(t *testing.T) {
	h := newHarness(t, nil)

	items := h.orch.Handle(context.Background(), "what is go?")
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemResponse, items[0].Kind)
	assert.Equal(t, "Response from test/model", items[0].Title)
	assert.Equal(t, "answer to what is go?", items[0].Subtitle)
	assert.Equal(t, model.CopyAction("answer to what is go?"), items[0].Action)

	assert.Equal(t, 1, h.orch.History().Len())
	assert.Equal(t, 1, h.orch.Quota().Count())

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "what is go?", recs[0].Exchange.UserQuery)
	assert.Equal(t, "answer to what is go?", recs[0].Exchange.AssistantResponse)
	assert.Equal(t, "test/model", recs[0].Exchange.Model)
	assert.Empty(t, recs[0].Exchange.ErrorNote)
	assert.Equal(t, 0.7, recs[0].Metadata.Temperature)
}

func TestChat_ThreadsHistoryIntoContext(t *testing.T) {
	h := newHarness(t, nil)
	chatN(t, h, 2)
	h.orch.Handle(context.Background(), "third")

	require.Equal(t, 3, h.comp.calls())
	last := h.comp.requests[2]
	assert.Equal(t, "third", last.Query)
	assert.Equal(t, "be brief", last.SystemPrompt)
	require.Len(t, last.Context, 2)
	assert.Equal(t, "question 0", last.Context[0].UserQuery)
	assert.Equal(t, "question 1", last.Context[1].UserQuery)
}

func TestClearHistory_AfterThreeExchanges(t *testing.T) {
	h := newHarness(t, nil)
	chatN(t, h, 3)
	require.Equal(t, 3, h.orch.History().Len())

	items := h.orch.Handle(context.Background(), "clear history")
	require.Len(t, items, 1)
	assert.Equal(t, "Conversation history cleared", items[0].Title)
	assert.Zero(t, h.orch.History().Len())

	// The log keeps everything; clearing is not logged.
	assert.Len(t, h.records(t), 3)

	h.orch.Handle(context.Background(), "next")
	assert.Empty(t, h.comp.requests[3].Context)
}

func TestViewHistory_WithTwoExchanges(t *testing.T) {
	h := newHarness(t, nil)
	chatN(t, h, 2)

	items := h.orch.Handle(context.Background(), "View History")
	require.Len(t, items, 2)
	assert.Equal(t, "question 0", items[0].Title)
	assert.Equal(t, "question 1", items[1].Title)
	assert.Equal(t, model.ItemHistory, items[0].Kind)
	assert.Equal(t, 2, h.comp.calls(), "view must not call the provider")
}

func TestChat_ThreeTimeouts(t *testing.T) {
	h := newHarness(t, nil)
	timeout := &cloud.TimeoutError{Op: "completion request", Err: context.DeadlineExceeded}
	h.comp.script = []error{timeout, timeout, timeout}

	items := h.orch.Handle(context.Background(), "hello?")

	assert.Equal(t, 3, h.comp.calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps.delays)

	require.Len(t, items, 1)
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Equal(t, "Request failed", items[0].Title)

	assert.Zero(t, h.orch.Quota().Count())
	assert.Zero(t, h.orch.History().Len())

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "hello?", recs[0].Exchange.UserQuery)
	assert.Empty(t, recs[0].Exchange.AssistantResponse)
	assert.Contains(t, recs[0].Exchange.ErrorNote, "timed out")
}

func TestChat_TransientThenSuccess(t *testing.T) {
	h := newHarness(t, nil)
	h.comp.script = []error{&cloud.HTTPError{Status: 502}}

	items := h.orch.Handle(context.Background(), "hi")
	require.Equal(t, model.ItemResponse, items[0].Kind)
	assert.Equal(t, 2, h.comp.calls())
	assert.Equal(t, 1, h.orch.Quota().Count())
	assert.Len(t, h.records(t), 1)
}

func TestChat_AuthErrorIsNotRetried(t *testing.T) {
	h := newHarness(t, nil)
	h.comp.script = []error{&cloud.AuthError{Status: 401, Message: "bad key"}}

	items := h.orch.Handle(context.Background(), "hi")
	assert.Equal(t, 1, h.comp.calls())
	assert.Empty(t, h.sleeps.delays)
	require.NotEmpty(t, items)
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Contains(t, items[0].Subtitle, "authentication failed")
	assert.Zero(t, h.orch.Quota().Count())
}

func TestGenerateImage_WithoutKeyMakesNoCall(t *testing.T) {
	h := newHarness(t, nil)

	items := h.orch.Handle(context.Background(), "generate image a lighthouse")
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Zero(t, h.images.calls)
	assert.Zero(t, h.comp.calls())
	assert.Empty(t, h.records(t))
	assert.Zero(t, h.orch.Quota().Count())
}

func TestGenerateImage_WithKey(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Image.APIKey = "img" })

	items := h.orch.Handle(context.Background(), "generate image a lighthouse")
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemResponse, items[0].Kind)
	assert.Equal(t, 1, h.images.calls)
	assert.Zero(t, h.orch.Quota().Count(), "images do not count toward the chat quota")
}

func TestEmptyQuery(t *testing.T) {
	h := newHarness(t, nil)
	items := h.orch.Handle(context.Background(), "  \t ")
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemInfo, items[0].Kind)
	assert.Zero(t, h.comp.calls())
	assert.Empty(t, h.records(t))
}

func TestExportFullLog(t *testing.T) {
	h := newHarness(t, nil)
	chatN(t, h, 3)

	items := h.orch.Handle(context.Background(), "export full log")
	require.Len(t, items, 1)
	require.Equal(t, model.ActionCopy, items[0].Action.Kind)

	path := items[0].Action.Payload
	assert.True(t, strings.HasPrefix(filepath.Base(path), "export_"))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := logstore.ParseRecords(f, path)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

// =============================================================================
// WARNINGS AND FAILURE HANDLING
// =============================================================================

func TestQuotaWarning(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Usage.QuotaThreshold = 2 })
	chatN(t, h, 2)

	items := h.orch.Handle(context.Background(), "third")
	require.Len(t, items, 2)
	assert.Equal(t, model.ItemResponse, items[0].Kind)
	assert.Equal(t, model.ItemWarning, items[1].Kind)
	assert.Equal(t, "3 calls this session exceed the advisory limit of 2", items[1].Subtitle)
	assert.Equal(t, 3, h.orch.Quota().Count())
}

func TestLogWriteFailureStillDeliversResponse(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.RemoveAll(h.dir))
	require.NoError(t, os.WriteFile(h.dir, nil, 0644))

	items := h.orch.Handle(context.Background(), "hi")
	require.Len(t, items, 2)
	assert.Equal(t, model.ItemResponse, items[0].Kind)
	assert.Equal(t, model.ItemWarning, items[1].Kind)
	assert.Equal(t, "Exchange not saved to log", items[1].Title)
	assert.Equal(t, 1, h.orch.History().Len())
	assert.Equal(t, 1, h.orch.Quota().Count())
}

func TestLoggingDisabledWarnsOnce(t *testing.T) {
	cfg := config.Default()
	comp := &fakeCompleter{}
	store := logstore.New(logstore.Options{Disabled: true, Warning: "logging disabled: no writable log directory"})
	orch := New(cfg, Options{Completer: comp, Store: store})

	first := orch.Handle(context.Background(), "one")
	require.Len(t, first, 2)
	assert.Equal(t, "Logging disabled for this session", first[1].Title)

	second := orch.Handle(context.Background(), "two")
	require.Len(t, second, 1)
	assert.Equal(t, model.ItemResponse, second[0].Kind)
}

func TestPanicBecomesErrorItem(t *testing.T) {
	h := newHarness(t, nil)
	h.comp.reply = func(cloud.Request) string { panic("boom") }

	items := h.orch.Handle(context.Background(), "hi")
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Equal(t, "Internal error", items[0].Title)

	// The orchestrator is still usable.
	h.comp.reply = nil
	items = h.orch.Handle(context.Background(), "again")
	assert.Equal(t, model.ItemResponse, items[0].Kind)
}

func TestCancellationRecordsOneFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.comp.block = func(c context.Context) error {
		cancel()
		<-c.Done()
		return c.Err()
	}

	items := h.orch.Handle(ctx, "slow question")
	require.NotEmpty(t, items)
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Equal(t, 1, h.comp.calls())

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Exchange.ErrorNote, "cancelled")
	assert.Zero(t, h.orch.Quota().Count())
}

func TestEmptyResponseIsAFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.comp.reply = func(cloud.Request) string { return "  \n " }

	items := h.orch.Handle(context.Background(), "hi")
	assert.Equal(t, model.ItemError, items[0].Kind)
	assert.Zero(t, h.orch.History().Len())
	assert.Zero(t, h.orch.Quota().Count())
	require.Len(t, h.records(t), 1)
}

func TestResponseWrapping(t *testing.T) {
	long := strings.Repeat("word ", 40)

	h := newHarness(t, func(c *config.Config) { c.UI.LineWrap = 20 })
	h.comp.reply = func(cloud.Request) string { return long }
	items := h.orch.Handle(context.Background(), "hi")
	for _, line := range strings.Split(items[0].Subtitle, "\n") {
		assert.LessOrEqual(t, len(line), 20)
	}
	assert.Equal(t, long, items[0].Action.Payload, "copy action keeps the raw text")

	h = newHarness(t, func(c *config.Config) { c.UI.LineWrap = 0 })
	h.comp.reply = func(cloud.Request) string { return long }
	items = h.orch.Handle(context.Background(), "hi")
	assert.NotContains(t, items[0].Subtitle, "\n")
}

func TestConcurrentHandleIsSerialized(t *testing.T) {
	h := newHarness(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h.orch.Handle(context.Background(), fmt.Sprintf("q%d", n))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, h.orch.History().Len())
	assert.Equal(t, 10, h.orch.Quota().Count())
	recs := h.records(t)
	require.Len(t, recs, 10)

	// Each request saw exactly the exchanges committed before it.
	for i, req := range h.comp.requests {
		assert.Len(t, req.Context, i)
	}
}

func TestStartupCleanup(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "session_20200101_000000_aaaaaaaa.md")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	mt := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(old, mt, mt))

	cfg := config.Default()
	cfg.Logging.Dir = dir
	cfg.Logging.RetentionDays = 30
	New(cfg, Options{Completer: &fakeCompleter{}})

	_, err := os.Stat(old)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
