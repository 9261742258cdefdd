package errorutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrConfigLoad    = errors.New("config load failed")
	ErrUnknownTask   = errors.New("unknown task")
	ErrAliasCycle    = errors.New("alias cycle detected")
	ErrTaskExecution = errors.New("task execution failed")
)

// BuildError carries one of the sentinel kinds above plus the task it concerns.
type BuildError struct {
	Kind error
	Task string
	Msg  string
	Err  error
}

func (e *BuildError) Error() string {
	if e == nil {
		return ""
	}
	s := e.Kind.Error()
	if e.Task != "" {
		s = fmt.Sprintf("%s: %s", s, e.Task)
	}
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

// Is reports whether target is this error's kind.
func (e *BuildError) Is(target error) bool {
	return target == e.Kind
}

func (e *BuildError) Unwrap() error { return e.Err }

func ConfigLoadError(err error, format string, args ...interface{}) error {
	return &BuildError{Kind: ErrConfigLoad, Msg: fmt.Sprintf(format, args...), Err: err}
}

func UnknownTaskError(name string) error {
	return &BuildError{Kind: ErrUnknownTask, Task: name}
}

func AliasCycleError(path []string) error {
	return &BuildError{Kind: ErrAliasCycle, Msg: strings.Join(path, " -> ")}
}

func TaskExecutionError(task string, err error) error {
	return &BuildError{Kind: ErrTaskExecution, Task: task, Err: err}
}

// TaskOf returns the task a BuildError refers to, or "".
func TaskOf(err error) string {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Task
	}
	return ""
}

// HandleError is a utility function for handling errors with logging
func HandleError(log zerolog.Logger, err error, msg string) {
	if err != nil {
		log.Error().Err(err).Msg(msg)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
