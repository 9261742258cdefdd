package ports

import (
	"context"
	"time"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
)

// TaskHandler executes one primitive task. A returned error is a task
// failure; the runner stops the sequence on it.
type TaskHandler interface {
	Run(ctx context.Context, cfg config.TaskConfig) (*models.TaskReport, error)
}

// TaskHandlerFunc adapts a function to TaskHandler.
type TaskHandlerFunc func(ctx context.Context, cfg config.TaskConfig) (*models.TaskReport, error)

func (f TaskHandlerFunc) Run(ctx context.Context, cfg config.TaskConfig) (*models.TaskReport, error) {
	return f(ctx, cfg)
}

// RunObserver is told about every finished top-level run.
type RunObserver interface {
	Notify(ctx context.Context, summary *models.RunSummary)
}

// MetricsRecorder receives task and run measurements.
type MetricsRecorder interface {
	ObserveTask(task models.TaskName, status models.TaskStatus, d time.Duration)
	ObserveRun(status models.TaskStatus, d time.Duration)
}
