package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitriz/mtbuild/internal/server"
	"github.com/dmitriz/mtbuild/internal/utils/contextutil"
	"github.com/dmitriz/mtbuild/internal/watcher"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// RunWatch watches the configured files and reruns the watch tasks on
// every change until ctx is cancelled. When addr is not empty a status,
// metrics and live-reload server listens on it. wopts override the
// configured watch settings.
func RunWatch(ctx context.Context, opts Options, addr string, wopts ...watcher.Option) error {
	log := logger.WithComponent("cli")

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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr != "" {
		srv := server.New(addr, app.Metrics)
		app.Runner.AddObserver(srv)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", addr).Msg("Server failed")
				cancel()
			}
		}()
		defer func() {
			sctx, scancel := contextutil.WithShutdownTimeout()
			defer scancel()
			if err := srv.Stop(sctx); err != nil {
				log.Warn().Err(err).Msg("Failed to stop server")
			}
		}()
	}

	w := watcher.New(app.Dir, app.Store.Watch(), app.Runner, wopts...)
	return w.Watch(ctx)
}
