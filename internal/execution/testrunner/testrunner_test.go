package testrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	callArgs := m.Called(ctx, dir, name, args)
	var out []byte
	if b := callArgs.Get(0); b != nil {
		out = b.([]byte)
	}
	return out, callArgs.Error(1)
}

func setup(t *testing.T) afero.Fs {
	t.Helper()
	logger.InitWithMode(logger.LogModeTest)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "test/b_test.js", []byte("exports.b = t => t.done()\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "test/a_test.js", []byte("exports.a = t => t.done()\n"), 0o644))
	return fs
}

func TestHandlerRunPasses(t *testing.T) {
	fs := setup(t)
	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, "/project", "nodeunit", []string{"test/a_test.js", "test/b_test.js"}).
		Return([]byte("OK: 2 assertions\n"), nil)

	cfg := &config.UnitTestConfig{Files: []string{"test/*.js"}, Command: []string{"nodeunit"}}
	report, err := NewHandler(fs, "/project", runner).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	runner.AssertExpectations(t)
}

func TestHandlerRunPassesCommandArguments(t *testing.T) {
	fs := setup(t)
	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, ".", "node", []string{"--test", "test/a_test.js", "test/b_test.js"}).
		Return(nil, nil)

	cfg := &config.UnitTestConfig{Files: []string{"test/*.js"}, Command: []string{"node", "--test"}}
	_, err := NewHandler(fs, ".", runner).Run(context.Background(), cfg)

	require.NoError(t, err)
	runner.AssertExpectations(t)
}

func TestHandlerRunFails(t *testing.T) {
	fs := setup(t)
	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, ".", "nodeunit", mock.Anything).
		Return([]byte("FAILURES: 1/2 assertions failed\n"), errors.New("exit status 1"))

	cfg := &config.UnitTestConfig{Files: []string{"test/*.js"}, Command: []string{"nodeunit"}}
	_, err := NewHandler(fs, ".", runner).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestHandlerRunNoFiles(t *testing.T) {
	fs := setup(t)
	runner := new(MockCommandRunner)

	cfg := &config.UnitTestConfig{Files: []string{"spec/*.js"}, Command: []string{"nodeunit"}}
	report, err := NewHandler(fs, ".", runner).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"no test files matched"}, report.Warnings)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
