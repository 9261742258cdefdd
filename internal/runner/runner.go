package runner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/core/ports"
	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// ConfigSource is the part of the config store the runner reads.
type ConfigSource interface {
	AliasSource
	Get(name models.TaskName) (config.TaskConfig, error)
}

// HandlerResolver looks task handlers up by name.
type HandlerResolver interface {
	Resolve(name string) (ports.TaskHandler, error)
}

// Runner executes primitive tasks strictly one after another and stops
// at the first failure.
type Runner struct {
	configs   ConfigSource
	handlers  HandlerResolver
	observers []ports.RunObserver
	metrics   ports.MetricsRecorder
	tracer    trace.Tracer

	// runs are serialized so a watch-triggered run never overlaps another
	mu sync.Mutex
}

type Option func(*Runner)

// WithObserver adds an observer called after every top-level run.
func WithObserver(o ports.RunObserver) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

func WithMetrics(m ports.MetricsRecorder) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		if tp != nil {
			r.tracer = tp.Tracer("github.com/dmitriz/mtbuild/internal/runner")
		}
	}
}

func New(configs ConfigSource, handlers HandlerResolver, opts ...Option) *Runner {
	r := &Runner{
		configs:  configs,
		handlers: handlers,
		tracer:   otel.Tracer("github.com/dmitriz/mtbuild/internal/runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddObserver attaches an observer to a runner that is already built. It
// waits for any run in progress.
func (r *Runner) AddObserver(o ports.RunObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	WithObserver(o)(r)
}

type step struct {
	name    models.TaskName
	handler ports.TaskHandler
	config  config.TaskConfig
}

// Expand returns the primitive sequence for a task or alias name.
func (r *Runner) Expand(name string) ([]models.TaskName, error) {
	return Expand(r.configs, name)
}

// Run executes a task or alias.
func (r *Runner) Run(ctx context.Context, name string) (*models.RunSummary, error) {
	return r.RunSequence(ctx, name, []string{name})
}

// RunSequence expands every name, resolves all handlers and configs up
// front, then runs the combined sequence. Nothing executes unless the
// whole sequence resolves.
func (r *Runner) RunSequence(ctx context.Context, label string, names []string) (*models.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.WithComponent("runner")
	summary := models.NewRunSummary(label)

	ctx, span := r.tracer.Start(ctx, "run "+label, trace.WithAttributes(
		attribute.String("run.id", summary.ID.String()),
		attribute.StringSlice("run.names", names),
	))
	defer span.End()

	steps, err := r.plan(names)
	if err == nil {
		for _, s := range steps {
			summary.Sequence = append(summary.Sequence, s.name)
		}
		log.Info().
			Str("run_id", summary.ID.String()).
			Str("requested", label).
			Int("tasks", len(steps)).
			Msg("Starting run")

		err = r.execute(ctx, summary, steps)
	} else {
		summary.Fail(models.TaskName(errorutil.TaskOf(err)), err.Error())
	}

	summary.Duration = time.Since(summary.StartedAt)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().
			Err(err).
			Str("run_id", summary.ID.String()).
			Str("failed_task", string(summary.FailedTask)).
			Dur("duration", summary.Duration).
			Msg("Run failed")
	} else {
		log.Info().
			Str("run_id", summary.ID.String()).
			Dur("duration", summary.Duration).
			Msg("Run completed")
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(summary.Status, summary.Duration)
	}
	for _, o := range r.observers {
		o.Notify(ctx, summary)
	}

	return summary, err
}

func (r *Runner) plan(names []string) ([]step, error) {
	var seq []models.TaskName
	for _, n := range names {
		expanded, err := Expand(r.configs, n)
		if err != nil {
			return nil, err
		}
		seq = append(seq, expanded...)
	}

	steps := make([]step, 0, len(seq))
	for _, name := range seq {
		handler, err := r.handlers.Resolve(string(name))
		if err != nil {
			return nil, err
		}
		cfg, err := r.configs.Get(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{name: name, handler: handler, config: cfg})
	}
	return steps, nil
}

func (r *Runner) execute(ctx context.Context, summary *models.RunSummary, steps []step) error {
	for _, s := range steps {
		result, err := r.runStep(ctx, s)
		summary.Results = append(summary.Results, result)
		if err != nil {
			summary.Fail(s.name, result.Reason)
			return errorutil.TaskExecutionError(string(s.name), err)
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, s step) (*models.TaskResult, error) {
	log := logger.WithComponent("runner").With().Str("task", string(s.name)).Logger()

	ctx, span := r.tracer.Start(ctx, "task "+string(s.name), trace.WithAttributes(
		attribute.String("task.name", string(s.name)),
	))
	defer span.End()

	log.Info().Msgf("Running %q task", s.name)
	start := time.Now()

	report, err := s.handler.Run(ctx, s.config)

	result := &models.TaskResult{
		Task:     s.name,
		Status:   models.TaskStatusSuccess,
		Duration: time.Since(start),
	}
	if report != nil {
		result.Outputs = report.Outputs
		result.Warnings = report.Warnings
	}
	for _, w := range result.Warnings {
		log.Warn().Msg(w)
	}

	if err != nil {
		result.Status = models.TaskStatusFailure
		result.Reason = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Reason)
		log.Error().Err(err).Dur("duration", result.Duration).Msg("Task failed")
	} else {
		log.Info().
			Strs("outputs", result.Outputs).
			Dur("duration", result.Duration).
			Msg("Task completed")
	}

	if r.metrics != nil {
		r.metrics.ObserveTask(s.name, result.Status, result.Duration)
	}
	return result, err
}
