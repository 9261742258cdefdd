package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

const (
	BackendLog     = "log"
	BackendDesktop = "desktop"
	BackendWebhook = "webhook"
)

// New returns the notifier for the configured backend.
func New(cfg config.NotifyConfig) (Notifier, error) {
	switch cfg.Backend {
	case "", BackendLog:
		return LogNotifier{}, nil
	case BackendDesktop:
		return &DesktopNotifier{}, nil
	case BackendWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("notification backend %q needs webhook_url", cfg.Backend)
		}
		return NewWebhookNotifier(cfg.WebhookURL), nil
	default:
		return nil, fmt.Errorf("unknown notification backend %q", cfg.Backend)
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message, _ config.NotifyConfig) error {
	log := logger.WithComponent("notify")
	event := log.Info()
	switch msg.Level {
	case LevelWarning:
		event = log.Warn()
	case LevelFailure:
		event = log.Error()
	}
	event.Str("title", msg.Title).Msg(msg.Body)
	return nil
}

// DesktopNotifier shows notifications with notify-send.
type DesktopNotifier struct {
	// Command defaults to notify-send.
	Command string
	exec    func(ctx context.Context, name string, args ...string) error
}

func (d *DesktopNotifier) Send(ctx context.Context, msg Message, opts config.NotifyConfig) error {
	name := d.Command
	if name == "" {
		name = "notify-send"
	}
	urgency := "normal"
	if msg.Level == LevelFailure {
		urgency = "critical"
	}
	args := []string{
		"-t", strconv.FormatInt(opts.Duration.Milliseconds(), 10),
		"-u", urgency,
		msg.Title, msg.Body,
	}

	run := d.exec
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) error {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, out)
			}
			return nil
		}
	}
	return run(ctx, name, args...)
}
