// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/commands"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/locale"
	"github.com/jeranaias/parley/internal/logstore"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/retry"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/telemetry"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options overrides collaborators built from the configuration.
// Zero fields get production defaults.
type Options struct {
	Completer cloud.Completer
	Images    cloud.ImageGenerator
	Store     *logstore.Store
	Session   session.Session

	// Policy replaces the retry policy derived from the configuration.
	Policy *retry.Policy

	Now    func() time.Time
	Logger *zap.Logger
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator is the single entry point for hosts. It owns the session
// history, quota counter and log store for one process lifetime.
type Orchestrator struct {
	mu sync.Mutex

	history   *session.History
	quota     *telemetry.QuotaTracker
	store     *logstore.Store
	router    *commands.Router
	completer cloud.Completer
	policy    retry.Policy

	provider  config.ProviderConfig
	messages  locale.Messages
	theme     styles.Theme
	wrapWidth int

	now    func() time.Time
	logger *zap.Logger
}

// New wires an orchestrator from cfg and runs the startup retention pass.
func New(cfg *config.Config, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sess := opts.Session
	if sess.ID == "" {
		sess = session.New(now())
	}

	theme := styles.MustLookup(cfg.UI.Theme)
	tag, err := locale.Parse(cfg.UI.Language)
	if err != nil {
		tag = locale.Default
	}

	o := &Orchestrator{
		history:   session.NewHistory(),
		quota:     telemetry.NewQuotaTracker(cfg.Usage.QuotaThreshold),
		store:     opts.Store,
		completer: opts.Completer,
		provider:  cfg.Provider,
		messages:  locale.For(tag),
		theme:     theme,
		wrapWidth: cfg.UI.WrapWidth(theme.WrapWidth),
		now:       now,
		logger:    logger,
	}

	if o.store == nil {
		o.store = logstore.Open(cfg.Logging.Dir, sess, cfg.Logging.IncludePrevious, logger.Named("logstore"))
	}
	if o.completer == nil {
		o.completer = cloud.NewOpenRouterClient(cfg.Provider.APIKey).
			WithBaseURL(cfg.Provider.BaseURL).
			WithRateLimit(cfg.Provider.RateLimit).
			WithLogger(logger.Named("cloud"))
	}
	images := opts.Images
	if images == nil {
		images = cloud.NewImageClient(cfg.Image.Endpoint).
			WithRateLimit(cfg.Provider.RateLimit).
			WithLogger(logger.Named("cloud"))
	}

	if opts.Policy != nil {
		o.policy = *opts.Policy
	} else {
		o.policy = retry.DefaultPolicy(cloud.IsTransient)
		o.policy.AttemptTimeout = time.Duration(cfg.Provider.TimeoutSecs) * time.Second
	}
	if o.policy.Logger == nil {
		o.policy.Logger = logger.Named("retry")
	}

	o.router = commands.NewRouter(commands.Config{
		History:     o.history,
		Logs:        o.store,
		Images:      images,
		ImageAPIKey: cfg.Image.APIKey,
		Policy:      o.policy,
		Chat:        o.chat,
		Messages:    o.messages,
		Theme:       theme,
		Logger:      logger.Named("commands"),
	})

	o.cleanup(cfg.Logging.RetentionDays)
	return o
}

func (o *Orchestrator) cleanup(days int) {
	report, err := o.store.Cleanup(days)
	if err != nil {
		o.logger.Warn("log retention cleanup failed", zap.Error(err))
		return
	}
	if len(report.Deleted) > 0 {
		o.logger.Info("removed old logs", zap.Int("count", len(report.Deleted)))
	}
}

// History returns the session history.
func (o *Orchestrator) History() *session.History { return o.history }

// Quota returns the usage counter.
func (o *Orchestrator) Quota() *telemetry.QuotaTracker { return o.quota }

// Store returns the log store.
func (o *Orchestrator) Store() *logstore.Store { return o.store }

// Theme returns the active theme.
func (o *Orchestrator) Theme() styles.Theme { return o.theme }

// Handle runs one query and returns the items to display. Calls are
// serialized; failures, panics included, come back as items.
func (o *Orchestrator) Handle(ctx context.Context, query string) (items []model.Item) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while handling query", zap.Any("panic", r), zap.Stack("stack"))
			items = []model.Item{o.item(model.ItemError,
				o.messages.Get(locale.InternalError), fmt.Sprint(r))}
		}
	}()

	return o.router.Handle(ctx, query)
}

// chat runs a completion under the retry policy and records the outcome.
// It is called by the router with o.mu held.
func (o *Orchestrator) chat(ctx context.Context, query string) []model.Item {
	modelName := cloud.ResolveModel(o.provider.Model)
	req := cloud.Request{
		Context:      o.history.All(),
		Query:        query,
		SystemPrompt: o.provider.SystemPrompt,
		Model:        modelName,
		Temperature:  o.provider.Temperature,
	}

	start := o.now()
	response, attempts, err := retry.Do(ctx, o.policy, func(actx context.Context) (string, error) {
		return o.completer.Complete(actx, req)
	})
	meta := logstore.Metadata{
		Temperature:  o.provider.Temperature,
		ResponseTime: o.now().Sub(start),
	}

	if err == nil && util.OneLine(response) == "" {
		err = errors.New("provider returned an empty response")
	}
	if err != nil {
		note := failureNote(ctx, err)
		o.logger.Warn("chat request failed",
			zap.Int("attempts", attempts),
			zap.String("model", modelName),
			zap.Error(err))

		items := []model.Item{o.item(model.ItemError, o.messages.Get(locale.RequestFailed), note)}
		ex := model.NewFailedExchange(o.now(), query, modelName, note)
		return o.record(ex, meta, items)
	}

	ex := model.NewExchange(o.now(), query, response, modelName)
	if err := o.history.Append(ex); err != nil {
		o.logger.Error("history append failed", zap.Error(err))
	}

	resp := o.item(model.ItemResponse, o.messages.Get(locale.ResponseFrom, modelName), util.Wrap(response, o.wrapWidth))
	resp.Action = model.CopyAction(response)

	items := o.record(ex, meta, []model.Item{resp})

	count := o.quota.Increment()
	if o.quota.IsOverThreshold() {
		o.logger.Info("advisory quota exceeded", zap.Int("count", count), zap.Int("threshold", o.quota.Threshold()))
		items = append(items, o.item(model.ItemWarning,
			o.messages.Get(locale.QuotaWarning),
			o.messages.Get(locale.QuotaWarningBody, count, o.quota.Threshold())))
	}
	return items
}

// record writes ex to the log and appends any persistence warnings.
func (o *Orchestrator) record(ex model.Exchange, meta logstore.Metadata, items []model.Item) []model.Item {
	if err := o.store.Write(ex, meta); err != nil {
		o.logger.Warn("log write failed", zap.Error(err))
		items = append(items, o.item(model.ItemWarning, o.messages.Get(locale.LogWriteWarning), err.Error()))
	}
	if w := o.store.TakeWarning(); w != "" {
		title := o.messages.Get(locale.LoggingDisabled)
		if !o.store.Disabled() {
			title = o.messages.Get(locale.LogWriteWarning)
		}
		items = append(items, o.item(model.ItemWarning, title, w))
	}
	return items
}

func (o *Orchestrator) item(kind model.ItemKind, title, subtitle string) model.Item {
	return model.Item{
		Title:    title,
		Subtitle: subtitle,
		Icon:     o.theme.Icon(kind),
		Kind:     kind,
	}
}

// failureNote is the error text stored with a failed exchange.
func failureNote(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil {
			return "cancelled: " + cause.Error()
		}
	}
	return util.OneLine(err.Error())
}
