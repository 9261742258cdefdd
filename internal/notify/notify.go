// Package notify reports finished runs to the user.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelFailure Level = "failure"
)

// Message is one user-facing notification.
type Message struct {
	Title string
	Body  string
	Level Level
}

// Notifier delivers messages to some display.
type Notifier interface {
	Send(ctx context.Context, msg Message, opts config.NotifyConfig) error
}

// Hook turns run summaries into notifications. It never affects the
// outcome of a run.
type Hook struct {
	cfg      config.NotifyConfig
	notifier Notifier
}

func NewHook(cfg config.NotifyConfig, notifier Notifier) *Hook {
	return &Hook{cfg: cfg, notifier: notifier}
}

// Notify implements ports.RunObserver.
func (h *Hook) Notify(ctx context.Context, summary *models.RunSummary) {
	if !h.cfg.Enabled || h.notifier == nil || summary == nil {
		return
	}
	for _, msg := range h.Messages(summary) {
		if err := h.notifier.Send(ctx, msg, h.cfg); err != nil {
			log := logger.WithComponent("notify")
			log.Warn().Err(err).Str("title", msg.Title).Msg("Failed to deliver notification")
		}
	}
}

// Messages returns the notifications for summary: at most MaxWarnings
// distinct warnings followed by either a failure or, when enabled, a
// success message.
func (h *Hook) Messages(summary *models.RunSummary) []Message {
	var out []Message

	seen := make(map[string]bool)
	for _, w := range summary.Warnings() {
		if len(seen) >= h.cfg.MaxWarnings {
			break
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, Message{Title: h.cfg.Title, Body: w, Level: LevelWarning})
	}

	switch {
	case !summary.Succeeded():
		body := summary.Reason
		if summary.FailedTask != "" {
			body = fmt.Sprintf("Task %q failed: %s", summary.FailedTask, summary.Reason)
		}
		out = append(out, Message{Title: h.cfg.Title, Body: body, Level: LevelFailure})
	case h.cfg.Success:
		out = append(out, Message{
			Title: h.cfg.Title,
			Body:  fmt.Sprintf("%s finished (%s)", summary.Requested, summary.Duration.Round(time.Millisecond)),
			Level: LevelSuccess,
		})
	}
	return out
}
