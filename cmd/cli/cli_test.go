package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type okCommands struct{}

func (okCommands) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return []byte("OK\n"), nil
}

func testOptions(t *testing.T) Options {
	t.Helper()
	logger.InitWithMode(logger.LogModeTest)

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"package.json": `{"name": "mylib", "version": "1.0.0"}`,
		"lib/mylib.js": "module.exports = { version: __VERSION__ }\n",
		"test/a.js":    "exports.a = function (t) { t.done() }\n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return Options{Dir: t.TempDir(), Fs: fs, Commands: okCommands{}}
}

func TestRunTaskDefault(t *testing.T) {
	opts := testOptions(t)
	opts.MetricsFile = filepath.Join(t.TempDir(), "mtbuild.prom")

	require.NoError(t, RunTask(context.Background(), opts, ""))

	for _, path := range []string{"target/mylib.js", "target/mylib.min.js", "target/mylib.min.map"} {
		ok, err := afero.Exists(opts.Fs, path)
		require.NoError(t, err)
		assert.True(t, ok, path)
	}

	data, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mtbuild_runs_total{status="success"} 1`)
	assert.Contains(t, string(data), `mtbuild_task_runs_total{status="success",task="run-unit-tests"} 1`)
}

func TestRunTaskUnknown(t *testing.T) {
	opts := testOptions(t)

	err := RunTask(context.Background(), opts, "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorutil.ErrUnknownTask))

	exists, err := afero.DirExists(opts.Fs, "target")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunTaskConfigError(t *testing.T) {
	opts := testOptions(t)
	require.NoError(t, opts.Fs.Remove("package.json"))

	err := RunTask(context.Background(), opts, "browser")
	assert.True(t, errors.Is(err, errorutil.ErrConfigLoad))
}

func TestListTasks(t *testing.T) {
	opts := testOptions(t)

	var buf bytes.Buffer
	require.NoError(t, ListTasks(context.Background(), &buf, opts))

	out := buf.String()
	assert.Contains(t, out, "extract-sourcemap")
	assert.Regexp(t, `browser\s+bundle-verbose, bundle-minified, extract-sourcemap`, out)
	assert.Regexp(t, `default\s+bundle-verbose, bundle-minified, extract-sourcemap, lint, run-unit-tests`, out)
}
