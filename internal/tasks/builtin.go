package tasks

import (
	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/core/ports"
	"github.com/dmitriz/mtbuild/internal/execution/bundle"
	"github.com/dmitriz/mtbuild/internal/execution/docs"
	"github.com/dmitriz/mtbuild/internal/execution/lint"
	"github.com/dmitriz/mtbuild/internal/execution/sourcemap"
	"github.com/dmitriz/mtbuild/internal/execution/testrunner"
)

// Default returns a registry holding every built-in task. fs is the
// project filesystem and dir the directory it is rooted at; external
// commands run from dir.
func Default(fs afero.Fs, dir string, commands testrunner.CommandRunner) *Registry {
	r := NewRegistry()

	bundler := bundle.NewHandler(fs)
	builtins := map[models.TaskName]ports.TaskHandler{
		models.TaskBundleVerbose:    bundler,
		models.TaskBundleMinified:   bundler,
		models.TaskBundleTests:      bundler,
		models.TaskExtractSourcemap: sourcemap.NewHandler(fs),
		models.TaskLint:             lint.NewHandler(fs),
		models.TaskRunUnitTests:     testrunner.NewHandler(fs, dir, commands),
		models.TaskDocs:             docs.NewHandler(fs),
	}
	for name, h := range builtins {
		// names are distinct and handlers non-nil
		_ = r.Register(name, h)
	}
	return r
}
