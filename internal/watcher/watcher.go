// Package watcher reruns a fixed task sequence whenever a watched source
// file changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/globutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

var ErrNothingToWatch = errors.New("no existing directory matches the watch patterns")

// SequenceRunner runs a list of task or alias names as one run.
type SequenceRunner interface {
	RunSequence(ctx context.Context, label string, names []string) (*models.RunSummary, error)
}

type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for more changes before
// starting a run. Zero runs on every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithOnRun registers a callback receiving every run the watcher starts.
func WithOnRun(fn func(summary *models.RunSummary, err error)) Option {
	return func(w *Watcher) {
		w.onRun = fn
	}
}

// Watcher observes the directories of its file patterns and runs its
// task sequence once per batch of matching changes. Runs never overlap:
// events arriving during a run are collected into the next batch.
type Watcher struct {
	root     string
	patterns []string
	tasks    []string
	debounce time.Duration
	runner   SequenceRunner
	onRun    func(*models.RunSummary, error)

	ready chan struct{}
}

// New returns a watcher for cfg rooted at the project directory root.
func New(root string, cfg config.WatchConfig, runner SequenceRunner, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		patterns: cfg.Files,
		tasks:    cfg.Tasks,
		debounce: cfg.Debounce,
		runner:   runner,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is cancelled. A failing run is logged and
// watching continues.
func (w *Watcher) Watch(ctx context.Context) error {
	log := logger.WithComponent("watcher")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range globutil.Dirs(w.patterns) {
		abs := filepath.Join(w.root, dir)
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			log.Warn().Str("dir", dir).Msg("Watch directory does not exist, skipping")
			continue
		}
		if err := fsw.Add(abs); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return ErrNothingToWatch
	}

	log.Info().
		Strs("patterns", w.patterns).
		Strs("tasks", w.tasks).
		Msg("Watching for changes")
	close(w.ready)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Watcher stopped")
			return nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("File watcher error")

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, matched := w.match(ev)
			if !matched {
				continue
			}
			log.Debug().Str("path", rel).Str("op", ev.Op.String()).Msg("Change detected")
			changed[rel] = true

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.run(ctx, changed)
			changed = make(map[string]bool)
		}
	}
}

func (w *Watcher) match(ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, globutil.Match(w.patterns, rel)
}

func (w *Watcher) run(ctx context.Context, changed map[string]bool) {
	log := logger.WithComponent("watcher")

	files := make([]string, 0, len(changed))
	for f := range changed {
		files = append(files, f)
	}
	log.Info().Strs("changed", files).Msg("Running tasks")

	summary, err := w.runner.RunSequence(ctx, strings.Join(w.tasks, ","), w.tasks)
	if err != nil {
		log.Error().Err(err).Msg("Watched run failed, still watching")
	}
	if w.onRun != nil {
		w.onRun(summary, err)
	}
}
