// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a distributed conversion job.
type JobStatus string

const (
	JobSubmitted JobStatus = "submitted"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. No transition leaves a
// terminal state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// validJobTransition enforces the allowed state machine edges:
// submitted -> running -> completed|failed|cancelled, with cancellation also
// permitted straight from submitted.
func validJobTransition(from, to JobStatus) bool {
	switch from {
	case JobSubmitted:
		return to == JobRunning || to == JobFailed || to == JobCancelled
	case JobRunning:
		return to == JobCompleted || to == JobFailed || to == JobCancelled
	default:
		return false
	}
}

// JobRecord tracks one directory-conversion job submitted to a cluster.
// Owned by the grid coordinator; status transitions are monotonic.
type JobRecord struct {
	// ID is the unique job identifier.
	ID string `json:"id" yaml:"id"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status" yaml:"status"`

	// InputDir and OutputDir are the directories the job converts.
	InputDir  string `json:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// SubmittedAt is when the job entered the queue.
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`

	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`

	// TotalTasks, CompletedTasks and FailedTasks count per-file work within
	// the job. CompletedTasks + FailedTasks never exceeds TotalTasks.
	TotalTasks     int `json:"total_tasks" yaml:"total_tasks"`
	CompletedTasks int `json:"completed_tasks" yaml:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks" yaml:"failed_tasks"`

	// Error is the failure reason when Status is JobFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Transition moves the record to a new status, rejecting any regression or
// exit from a terminal state. Terminal transitions stamp CompletedAt.
func (j *JobRecord) Transition(to JobStatus) error {
	if to == j.Status {
		return nil
	}
	if !validJobTransition(j.Status, to) {
		return fmt.Errorf("invalid job transition: %s -> %s", j.Status, to)
	}
	j.Status = to
	if to.Terminal() {
		j.CompletedAt = time.Now().UTC()
	}
	return nil
}

// ClusterInfo describes a running worker pool. It is an opaque handle from
// the caller's perspective: created by StartCluster, invalidated by
// StopCluster.
type ClusterInfo struct {
	// SchedulerAddress is the address jobs are submitted to. For a local
	// cluster this is the in-process marker "local".
	SchedulerAddress string `json:"scheduler_address" yaml:"scheduler_address"`

	// Workers is the number of job executors in the pool.
	Workers int `json:"workers" yaml:"workers"`

	// MemoryLimitMB is the advisory per-worker memory ceiling.
	MemoryLimitMB int `json:"memory_limit_mb" yaml:"memory_limit_mb"`

	// Status is "running" while the pool accepts jobs.
	Status string `json:"status" yaml:"status"`
}
