package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/execution/testrunner"
	"github.com/dmitriz/mtbuild/internal/monitoring/metrics"
	"github.com/dmitriz/mtbuild/internal/notify"
	"github.com/dmitriz/mtbuild/internal/runner"
	"github.com/dmitriz/mtbuild/internal/tasks"
	"github.com/dmitriz/mtbuild/internal/telemetry"
	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// Options are the flags shared by every command.
type Options struct {
	Dir          string
	ManifestPath string
	ConfigPath   string
	MetricsFile  string

	// Fs overrides the project filesystem rooted at Dir.
	Fs afero.Fs
	// Commands overrides how external test commands are run.
	Commands testrunner.CommandRunner
}

// App is one fully wired build: configuration, task registry, runner and
// its observers.
type App struct {
	Dir      string
	Store    *config.Store
	Registry *tasks.Registry
	Runner   *runner.Runner
	Metrics  *metrics.Metrics

	metricsFile string
	shutdown    telemetry.ShutdownFunc
}

// NewApp loads the project configuration and wires the runner. extra
// observers are told about every run after the notification hook.
func NewApp(ctx context.Context, opts Options, extra ...runner.Option) (*App, error) {
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, errorutil.WrapError(err, "resolving project directory %s", opts.Dir)
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), dir)
	}

	store, err := config.Load(fs, config.Options{
		ManifestPath: opts.ManifestPath,
		ConfigPath:   opts.ConfigPath,
	})
	if err != nil {
		return nil, err
	}

	notifier, err := notify.New(store.Notify())
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.InitTelemetry(ctx, store.Telemetry())
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	registry := tasks.Default(fs, dir, opts.Commands)

	runOpts := []runner.Option{
		runner.WithMetrics(m),
		runner.WithObserver(notify.NewHook(store.Notify(), notifier)),
	}
	runOpts = append(runOpts, extra...)

	log := logger.WithComponent("cli")
	log.Debug().
		Str("dir", dir).
		Str("project", store.Manifest().Name).
		Str("version", store.Manifest().Version).
		Msg("Project loaded")

	return &App{
		Dir:         dir,
		Store:       store,
		Registry:    registry,
		Runner:      runner.New(store, registry, runOpts...),
		Metrics:     m,
		metricsFile: opts.MetricsFile,
		shutdown:    shutdown,
	}, nil
}

// Close flushes telemetry and writes the metrics file if one was requested.
func (a *App) Close(ctx context.Context) error {
	log := logger.WithComponent("cli")

	if a.metricsFile != "" {
		errorutil.HandleError(log, a.Metrics.WriteToTextfile(a.metricsFile), "Failed to write metrics file")
	}
	if a.shutdown != nil {
		return a.shutdown(ctx)
	}
	return nil
}
