// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/locale"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/retry"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// summaryWidth bounds history titles and subtitles in display columns.
const summaryWidth = 80

// Exporter writes the full log to a new file and returns its path.
type Exporter interface {
	ExportFull(targetDir string) (string, error)
}

// ChatFunc answers a query that is not a control command.
type ChatFunc func(ctx context.Context, query string) []model.Item

// Config wires a Router to the state it operates on.
type Config struct {
	History *session.History
	Logs    Exporter

	Images      cloud.ImageGenerator
	ImageAPIKey string
	Policy      retry.Policy

	Chat ChatFunc

	Messages locale.Messages
	Theme    styles.Theme
	Logger   *zap.Logger
}

// Router turns a query into display items.
type Router struct {
	cfg    Config
	parser *Parser
	logger *zap.Logger
}

// NewRouter creates a router over the built-in commands.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:    cfg,
		parser: NewParser(NewRegistry()),
		logger: logger,
	}
}

// Handle classifies query and runs it. Every outcome, failures included,
// comes back as items.
func (r *Router) Handle(ctx context.Context, query string) []model.Item {
	res, err := r.parser.Parse(query)
	if errors.Is(err, ErrEmptyQuery) {
		return []model.Item{r.item(model.ItemInfo,
			r.cfg.Messages.Get(locale.BlankPrompt),
			r.cfg.Messages.Get(locale.BlankPromptHint))}
	}

	r.logger.Debug("query classified", zap.Stringer("kind", res.Kind))

	switch res.Kind {
	case KindClear:
		return r.clearHistory()
	case KindView:
		return r.viewHistory()
	case KindExport:
		return r.exportLog()
	case KindImage:
		return r.generateImage(ctx, res.Args)
	default:
		if r.cfg.Chat == nil {
			return nil
		}
		return r.cfg.Chat(ctx, res.Args)
	}
}

func (r *Router) clearHistory() []model.Item {
	r.cfg.History.Clear()
	return []model.Item{r.item(model.ItemInfo, r.cfg.Messages.Get(locale.ClearSuccess), "")}
}

func (r *Router) viewHistory() []model.Item {
	recent := r.cfg.History.Recent(session.ViewLimit)
	if len(recent) == 0 {
		return []model.Item{r.item(model.ItemInfo, r.cfg.Messages.Get(locale.NoHistory), "")}
	}

	items := make([]model.Item, 0, len(recent))
	for _, ex := range recent {
		it := r.item(model.ItemHistory,
			util.TruncateWidth(util.OneLine(ex.UserQuery), summaryWidth),
			util.TruncateWidth(util.OneLine(ex.AssistantResponse), summaryWidth))
		it.Action = model.CopyAction(ex.AssistantResponse)
		items = append(items, it)
	}
	return items
}

func (r *Router) exportLog() []model.Item {
	if r.cfg.Logs == nil {
		return []model.Item{r.item(model.ItemError, r.cfg.Messages.Get(locale.ExportFailed), "")}
	}
	path, err := r.cfg.Logs.ExportFull("")
	if err != nil {
		r.logger.Warn("export failed", zap.Error(err))
		return []model.Item{r.item(model.ItemError, r.cfg.Messages.Get(locale.ExportFailed), err.Error())}
	}
	it := r.item(model.ItemInfo, r.cfg.Messages.Get(locale.ExportSuccess), r.cfg.Messages.Get(locale.PathLabel, path))
	it.Action = model.CopyAction(path)
	return []model.Item{it}
}

func (r *Router) generateImage(ctx context.Context, prompt string) []model.Item {
	key := strings.TrimSpace(r.cfg.ImageAPIKey)
	if key == "" || r.cfg.Images == nil {
		err := &ConfigurationError{Setting: "image_api_key", Message: "not set"}
		r.logger.Info("image request rejected", zap.Error(err))
		return []model.Item{r.item(model.ItemError,
			r.cfg.Messages.Get(locale.ImageKeyMissing),
			r.cfg.Messages.Get(locale.ImageKeyHint))}
	}
	if prompt == "" {
		return []model.Item{r.item(model.ItemWarning, r.cfg.Messages.Get(locale.ImagePromptNeeded), "")}
	}

	url, attempts, err := retry.Do(ctx, r.cfg.Policy, func(ctx context.Context) (string, error) {
		return r.cfg.Images.GenerateImage(ctx, prompt, key)
	})
	if err != nil {
		r.logger.Warn("image generation failed", zap.Int("attempts", attempts), zap.Error(err))
		return []model.Item{r.item(model.ItemError, r.cfg.Messages.Get(locale.ImageFailed), err.Error())}
	}

	it := r.item(model.ItemResponse, r.cfg.Messages.Get(locale.ImageGenerated), url)
	it.Action = model.CopyAction(url)
	return []model.Item{it}
}

func (r *Router) item(kind model.ItemKind, title, subtitle string) model.Item {
	return model.Item{
		Title:    title,
		Subtitle: subtitle,
		Icon:     r.cfg.Theme.Icon(kind),
		Kind:     kind,
	}
}
