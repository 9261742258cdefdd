package models

import "fmt"

// TaskName identifies a primitive build task.
type TaskName string

const (
	TaskBundleVerbose    TaskName = "bundle-verbose"
	TaskBundleMinified   TaskName = "bundle-minified"
	TaskBundleTests      TaskName = "bundle-tests"
	TaskExtractSourcemap TaskName = "extract-sourcemap"
	TaskLint             TaskName = "lint"
	TaskRunUnitTests     TaskName = "run-unit-tests"
	TaskDocs             TaskName = "docs"
)

// AllTasks lists every primitive task in display order.
var AllTasks = []TaskName{
	TaskBundleVerbose,
	TaskBundleMinified,
	TaskBundleTests,
	TaskExtractSourcemap,
	TaskLint,
	TaskRunUnitTests,
	TaskDocs,
}

func (n TaskName) String() string { return string(n) }

func ParseTaskName(s string) (TaskName, error) {
	for _, n := range AllTasks {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("not a primitive task: %q", s)
}

// TaskReport is what a handler returns on success.
type TaskReport struct {
	Outputs  []string
	Warnings []string
}
