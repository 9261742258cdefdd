// Package testrunner runs the project's unit tests through an external
// command such as nodeunit.
package testrunner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/globutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// CommandRunner executes a command in dir and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type Handler struct {
	fs     afero.Fs
	dir    string
	runner CommandRunner
}

// NewHandler returns a handler that matches test files on fs and runs the
// command from dir, the same project root fs is rooted at.
func NewHandler(fs afero.Fs, dir string, runner CommandRunner) *Handler {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Handler{fs: fs, dir: dir, runner: runner}
}

func (h *Handler) Run(ctx context.Context, tc config.TaskConfig) (*models.TaskReport, error) {
	cfg, ok := tc.(*config.UnitTestConfig)
	if !ok {
		return nil, fmt.Errorf("run-unit-tests: unexpected config type %T", tc)
	}
	log := logger.WithComponent("testrunner")

	files, err := globutil.Expand(h.fs, cfg.Files)
	if err != nil {
		return nil, err
	}
	report := &models.TaskReport{}
	if len(files) == 0 {
		report.Warnings = append(report.Warnings, "no test files matched")
		return report, nil
	}

	args := append(append([]string(nil), cfg.Command[1:]...), files...)
	log.Debug().
		Str("command", cfg.Command[0]).
		Strs("args", args).
		Msg("Running unit tests")

	output, err := h.runner.Run(ctx, h.dir, cfg.Command[0], args...)
	for _, line := range strings.Split(strings.TrimRight(string(output), "\n"), "\n") {
		if line != "" {
			log.Info().Msg(line)
		}
	}
	if err != nil {
		return report, fmt.Errorf("%s: %w", cfg.Command[0], err)
	}
	return report, nil
}
