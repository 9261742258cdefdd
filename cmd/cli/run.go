package cli

import (
	"context"

	"github.com/dmitriz/mtbuild/internal/utils/contextutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// DefaultTask runs when no task name is given.
const DefaultTask = "default"

// RunTask runs one task or alias and returns its error, if any. The
// caller maps a non-nil error to a non-zero exit status.
func RunTask(ctx context.Context, opts Options, name string) error {
	log := logger.WithComponent("cli")
	if name == "" {
		name = DefaultTask
	}

	app, err := NewApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := contextutil.WithShutdownTimeout()
		defer cancel()
		if err := app.Close(sctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown failed")
		}
	}()

	summary, err := app.Runner.Run(ctx, name)
	if err != nil {
		return err
	}

	log.Info().
		Str("task", name).
		Int("tasks", len(summary.Sequence)).
		Dur("duration", summary.Duration).
		Msg("Done, without errors")
	return nil
}
