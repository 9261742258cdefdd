package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailure TaskStatus = "failure"
)

type TaskResult struct {
	Task     TaskName      `json:"task"`
	Status   TaskStatus    `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Outputs  []string      `json:"outputs,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (r *TaskResult) Succeeded() bool {
	return r != nil && r.Status == TaskStatusSuccess
}

// RunSummary describes one top-level run of the task runner.
type RunSummary struct {
	ID         uuid.UUID     `json:"id"`
	Requested  string        `json:"requested"`
	Sequence   []TaskName    `json:"sequence"`
	Results    []*TaskResult `json:"results"`
	Status     TaskStatus    `json:"status"`
	FailedTask TaskName      `json:"failed_task,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

func NewRunSummary(requested string) *RunSummary {
	return &RunSummary{
		ID:        uuid.New(),
		Requested: requested,
		Status:    TaskStatusSuccess,
		StartedAt: time.Now(),
	}
}

func (s *RunSummary) Succeeded() bool {
	return s != nil && s.Status == TaskStatusSuccess
}

// Warnings collects warnings from every task result in run order.
func (s *RunSummary) Warnings() []string {
	var out []string
	for _, r := range s.Results {
		out = append(out, r.Warnings...)
	}
	return out
}

// Fail marks the summary failed and attributes it to task.
func (s *RunSummary) Fail(task TaskName, reason string) {
	s.Status = TaskStatusFailure
	s.FailedTask = task
	s.Reason = reason
}
