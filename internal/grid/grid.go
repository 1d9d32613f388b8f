// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grid runs directory-conversion jobs on a cluster of workers with
// explicit lifecycle management and asynchronous polling. A local cluster is
// an in-process pool of job executors; a remote cluster is a scheduler
// reached over HTTP that runs the same coordinator behind a server. Job and
// cluster state is in-memory only and does not survive process restart.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomanizer/markdown-converter/internal/batch"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// jobQueueDepth bounds how many submitted jobs may wait for an executor.
const jobQueueDepth = 64

// errQueueFull is returned by SubmitJob when every queue slot is taken.
// The HTTP server maps it to 429 so clients back off and retry.
var errQueueFull = errors.New("job queue full")

// jobRequest is one queued directory-conversion job.
type jobRequest struct {
	id        string
	inputDir  string
	outputDir string
	ctx       context.Context
}

// Coordinator manages cluster lifecycle and job tracking. All exported
// methods are safe for concurrent use.
type Coordinator struct {
	cfg       types.GridConfig
	conv      types.ConversionConfig
	bootstrap batch.Bootstrap
	log       io.Writer

	mu      sync.Mutex
	jobs    map[string]*types.JobRecord
	cancels map[string]context.CancelFunc

	// Local cluster state, nil until StartCluster.
	queue      chan jobRequest
	clusterCtx context.Context
	stop       context.CancelFunc
	workers    sync.WaitGroup
	cluster    *types.ClusterInfo

	// Remote cluster client, nil for local clusters.
	remote *Client
}

// NewCoordinator validates the configuration and returns an idle
// coordinator. StartCluster must be called before submitting jobs.
func NewCoordinator(cfg types.GridConfig, conv types.ConversionConfig, bootstrap batch.Bootstrap, w io.Writer) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClusterType == types.ClusterLocal && bootstrap == nil {
		return nil, fmt.Errorf("%w: nil bootstrap for local cluster", types.ErrConfigInvalid)
	}
	if w == nil {
		w = io.Discard
	}
	return &Coordinator{
		cfg:       cfg,
		conv:      conv,
		bootstrap: bootstrap,
		log:       w,
		jobs:      make(map[string]*types.JobRecord),
		cancels:   make(map[string]context.CancelFunc),
	}, nil
}

// StartCluster provisions the worker pool. For a remote cluster the
// scheduler is health-checked first; an unreachable scheduler is a
// dependency error surfaced here, never deferred to job polling.
func (c *Coordinator) StartCluster(ctx context.Context) (types.ClusterInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cluster != nil {
		return types.ClusterInfo{}, fmt.Errorf("cluster already running at %s", c.cluster.SchedulerAddress)
	}

	if c.cfg.ClusterType == types.ClusterRemote {
		client := NewClient(c.cfg.SchedulerAddress)
		if err := client.Health(ctx); err != nil {
			return types.ClusterInfo{}, fmt.Errorf("%w: scheduler %s: %v",
				types.ErrDependencyUnavailable, c.cfg.SchedulerAddress, err)
		}
		c.remote = client
		c.cluster = &types.ClusterInfo{
			SchedulerAddress: c.cfg.SchedulerAddress,
			Workers:          c.cfg.Workers,
			MemoryLimitMB:    c.cfg.MemoryLimitMB,
			Status:           "running",
		}
		fmt.Fprintf(c.log, "connected to scheduler %s\n", c.cfg.SchedulerAddress)
		return *c.cluster, nil
	}

	c.clusterCtx, c.stop = context.WithCancel(context.Background())
	c.queue = make(chan jobRequest, jobQueueDepth)
	for i := 0; i < c.cfg.Workers; i++ {
		c.workers.Add(1)
		go c.executor()
	}
	c.cluster = &types.ClusterInfo{
		SchedulerAddress: "local",
		Workers:          c.cfg.Workers,
		MemoryLimitMB:    c.cfg.MemoryLimitMB,
		Status:           "running",
	}
	fmt.Fprintf(c.log, "started local cluster with %d workers\n", c.cfg.Workers)
	return *c.cluster, nil
}

// StopCluster tears down the worker pool. Safe to call with jobs in flight:
// their contexts are cancelled and the work is abandoned, not drained.
func (c *Coordinator) StopCluster() {
	c.mu.Lock()
	if c.cluster == nil {
		c.mu.Unlock()
		return
	}
	stop := c.stop
	c.cluster = nil
	c.remote = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		c.workers.Wait()
	}
	fmt.Fprintln(c.log, "cluster stopped")
}

// ClusterInfo returns the current cluster handle, or false when no cluster
// is running.
func (c *Coordinator) ClusterInfo() (types.ClusterInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cluster == nil {
		return types.ClusterInfo{}, false
	}
	return *c.cluster, true
}

// SubmitJob enqueues a whole directory-conversion run as one unit of work
// and returns immediately with the job in submitted state. The conversion
// proceeds asynchronously.
func (c *Coordinator) SubmitJob(inputDir, outputDir string) (types.JobRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cluster == nil {
		return types.JobRecord{}, fmt.Errorf("no active cluster: call StartCluster first")
	}

	if c.remote != nil {
		rec, err := c.remote.SubmitJob(context.Background(), inputDir, outputDir)
		if err != nil {
			return types.JobRecord{}, err
		}
		c.jobs[rec.ID] = &rec
		return rec, nil
	}

	rec := &types.JobRecord{
		ID:          uuid.NewString(),
		Status:      types.JobSubmitted,
		InputDir:    inputDir,
		OutputDir:   outputDir,
		SubmittedAt: time.Now().UTC(),
	}

	jobCtx, cancel := context.WithCancel(c.clusterCtx)
	select {
	case c.queue <- jobRequest{id: rec.ID, inputDir: inputDir, outputDir: outputDir, ctx: jobCtx}:
	default:
		cancel()
		return types.JobRecord{}, fmt.Errorf("%w (%d pending)", errQueueFull, jobQueueDepth)
	}

	c.jobs[rec.ID] = rec
	c.cancels[rec.ID] = cancel
	fmt.Fprintf(c.log, "submitted job %s for %s\n", rec.ID, inputDir)
	return *rec, nil
}

// JobStatus returns a snapshot of the job record, or false when the id is
// unknown. Non-blocking; callers poll this on an interval.
func (c *Coordinator) JobStatus(id string) (types.JobRecord, bool) {
	c.mu.Lock()
	remote := c.remote
	rec, ok := c.jobs[id]
	var snapshot types.JobRecord
	if ok {
		snapshot = *rec
	}
	c.mu.Unlock()

	if remote != nil {
		fresh, err := remote.JobStatus(context.Background(), id)
		if err != nil {
			return snapshot, ok
		}
		c.mu.Lock()
		c.jobs[id] = &fresh
		c.mu.Unlock()
		return fresh, true
	}
	return snapshot, ok
}

// Jobs returns snapshots of all tracked jobs, newest first.
func (c *Coordinator) Jobs() []types.JobRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.JobRecord, 0, len(c.jobs))
	for _, rec := range c.jobs {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

// CancelJob requests best-effort cancellation. It returns false when the job
// is unknown or already terminal. A cancelled job never reverts to running:
// the record moves to cancelled here and the monotonic transition rules
// reject any later completion from the abandoned run.
func (c *Coordinator) CancelJob(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != nil {
		ok, err := c.remote.CancelJob(context.Background(), id)
		if err != nil {
			return false
		}
		if rec, tracked := c.jobs[id]; tracked && ok {
			rec.Transition(types.JobCancelled)
		}
		return ok
	}

	rec, ok := c.jobs[id]
	if !ok || rec.Status.Terminal() {
		return false
	}
	if cancel := c.cancels[id]; cancel != nil {
		cancel()
	}
	rec.Transition(types.JobCancelled)
	fmt.Fprintf(c.log, "cancelled job %s\n", id)
	return true
}

// WaitForJob polls the job until it reaches a terminal state, the poll
// interval elapsing between lookups. The wait is bounded by the configured
// job timeout, after which the job is treated as abandoned.
func (c *Coordinator) WaitForJob(ctx context.Context, id string) (types.JobRecord, error) {
	timeout := c.cfg.JobTimeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	deadline := time.Now().Add(timeout)
	for {
		rec, ok := c.JobStatus(id)
		if !ok {
			return types.JobRecord{}, fmt.Errorf("unknown job %s", id)
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		if time.Now().After(deadline) {
			return rec, fmt.Errorf("job %s still %s after %s, abandoning", id, rec.Status, timeout)
		}
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// CleanupJobs removes terminal job records and their cancel functions,
// returning how many were pruned.
func (c *Coordinator) CleanupJobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for id, rec := range c.jobs {
		if rec.Status.Terminal() {
			delete(c.jobs, id)
			delete(c.cancels, id)
			pruned++
		}
	}
	return pruned
}

// executor is one cluster worker: it pulls queued jobs and runs each as a
// full batch conversion until the cluster shuts down.
func (c *Coordinator) executor() {
	defer c.workers.Done()
	for {
		select {
		case <-c.clusterCtx.Done():
			return
		case req := <-c.queue:
			c.runJob(req)
		}
	}
}

// runJob executes one job and folds the batch stats into its record. A job
// cancelled before or during the run keeps its cancelled status: the
// monotonic transition rules make the late completion a no-op.
func (c *Coordinator) runJob(req jobRequest) {
	c.mu.Lock()
	rec, ok := c.jobs[req.id]
	if !ok || rec.Status.Terminal() {
		c.mu.Unlock()
		return
	}
	rec.Transition(types.JobRunning)
	c.mu.Unlock()

	runner, err := batch.NewRunner(c.cfg.Batch, c.conv, c.bootstrap, c.log)
	if err != nil {
		c.failJob(req.id, err)
		return
	}
	result, err := runner.Run(req.ctx, req.inputDir, req.outputDir)
	if err != nil {
		c.failJob(req.id, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok = c.jobs[req.id]
	if !ok || rec.Status.Terminal() {
		// Cancelled mid-run: the terminal record stays untouched, stats
		// from the aborted run included.
		return
	}
	rec.TotalTasks = result.Stats.TotalFiles
	rec.CompletedTasks = result.Stats.ProcessedFiles
	rec.FailedTasks = result.Stats.FailedFiles
	rec.Transition(types.JobCompleted)
	fmt.Fprintf(c.log, "job %s finished: %d/%d tasks completed, %d failed\n",
		req.id, rec.CompletedTasks, rec.TotalTasks, rec.FailedTasks)
}

// failJob marks a job failed with the triggering error. The coordinator
// itself keeps running.
func (c *Coordinator) failJob(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.jobs[id]
	if !ok {
		return
	}
	rec.Error = err.Error()
	rec.Transition(types.JobFailed)
	fmt.Fprintf(c.log, "job %s failed: %v\n", id, err)
}
