package errorutil

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildErrorKinds(t *testing.T) {
	t.Run("unknown task", func(t *testing.T) {
		err := UnknownTaskError("nonexistent")
		assert.True(t, errors.Is(err, ErrUnknownTask))
		assert.False(t, errors.Is(err, ErrAliasCycle))
		assert.Equal(t, "unknown task: nonexistent", err.Error())
		assert.Equal(t, "nonexistent", TaskOf(err))
	})

	t.Run("alias cycle path", func(t *testing.T) {
		err := AliasCycleError([]string{"a", "b", "a"})
		assert.True(t, errors.Is(err, ErrAliasCycle))
		assert.Equal(t, "alias cycle detected: a -> b -> a", err.Error())
	})

	t.Run("config load keeps cause", func(t *testing.T) {
		err := ConfigLoadError(os.ErrNotExist, "manifest %s", "package.json")
		assert.True(t, errors.Is(err, ErrConfigLoad))
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.Contains(t, err.Error(), "manifest package.json")
	})

	t.Run("task execution survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("run: %w", TaskExecutionError("lint", assert.AnError))
		assert.True(t, errors.Is(err, ErrTaskExecution))
		assert.True(t, errors.Is(err, assert.AnError))
		assert.Equal(t, "lint", TaskOf(err))
	})
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	err := WrapError(assert.AnError, "reading %s", "lib/id.js")
	assert.True(t, errors.Is(err, assert.AnError))
	assert.Contains(t, err.Error(), "reading lib/id.js: ")
}
