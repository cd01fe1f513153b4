package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/ledger"
	"github.com/arjunmalhotra/opsrun/internal/merge"
	"github.com/arjunmalhotra/opsrun/internal/registry"
	"github.com/arjunmalhotra/opsrun/internal/util"
)

// Config holds engine-level execution limits
type Config struct {
	// MaxParallel is the engine concurrency ceiling. The effective ceiling
	// for a plan is min(plan.MaxParallel, MaxParallel).
	MaxParallel int

	// MaxBatchSize caps the number of tasks a single job may carry.
	// Oversized jobs fail whole, with no task attempted.
	MaxBatchSize int

	// DefaultTimeout bounds a task's handler invocation when the task does
	// not carry its own timeout
	DefaultTimeout time.Duration
}

// DefaultConfig returns sensible defaults for engine configuration
func DefaultConfig() Config {
	return Config{
		MaxParallel:    4,
		MaxBatchSize:   100,
		DefaultTimeout: 30 * time.Second,
	}
}

// ProgressFunc is called after each task result is recorded with
// (completed, total) counts
type ProgressFunc func(completed, total int)

// Engine runs execution plans under bounded concurrency with per-task
// failure isolation. Every per-item error is recovered into a task result;
// nothing below the job level ever propagates to the caller.
type Engine struct {
	// cfg holds the execution limits
	cfg Config

	// registry resolves logical task types to handlers
	registry *registry.Registry

	// ledger records job results; may be nil when no job history is wanted
	ledger *ledger.Store

	// logger for structured logging
	logger *slog.Logger
}

// NewEngine creates an execution engine. The ledger may be nil.
func NewEngine(cfg Config, reg *registry.Registry, led *ledger.Store, logger *slog.Logger) *Engine {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultConfig().MaxBatchSize
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:      cfg,
		registry: reg,
		ledger:   led,
		logger:   logger,
	}
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Execute runs a plan and returns its job result. The parallel group runs
// concurrently under the effective ceiling, then the sequential group runs
// in list order. Returns an error only for a nil or malformed plan; every
// execution outcome is reported through the structured result.
func (e *Engine) Execute(ctx context.Context, plan *job.Plan) (*job.Result, error) {
	return e.ExecuteWithProgress(ctx, plan, nil)
}

// ExecuteWithProgress runs a plan, invoking progressFn after each task
// result is recorded. Progress callbacks happen on the single aggregation
// path, never from within a task's own goroutine.
func (e *Engine) ExecuteWithProgress(ctx context.Context, plan *job.Plan, progressFn ProgressFunc) (*job.Result, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", util.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidPlan, err)
	}

	total := plan.TaskCount()
	res := job.NewResult(plan.ID)
	res.DryRun = plan.DryRun

	e.recordCreate(res)

	e.logger.Info("starting job",
		"job_id", plan.ID,
		"tasks", total,
		"parallel", len(plan.Parallel),
		"sequential", len(plan.Sequential),
		"dry_run", plan.DryRun)

	// Batch-size error is job-level: the whole job fails with no task
	// attempted
	if total > e.cfg.MaxBatchSize {
		err := fmt.Errorf("%w: %d tasks > %d", util.ErrBatchTooLarge, total, e.cfg.MaxBatchSize)
		e.failAll(res, plan.Tasks(), err)
		report(progressFn, total, total)
		return e.finish(res), nil
	}

	limit := e.effectiveLimit(plan.MaxParallel)

	// Phase 1: parallel group, gated by a shared counting semaphore.
	// Outcomes are mapped back to their submission index so the result list
	// order never depends on completion order.
	if len(plan.Parallel) > 0 {
		results := e.runParallel(ctx, plan.Parallel, limit, plan.DryRun)
		for _, tr := range results {
			res.Append(tr)
			report(progressFn, len(res.TaskResults), total)
		}
	}

	// Phase 2: sequential group, strictly in list order. After a failure
	// under stop-on-error, remaining tasks are marked SKIPPED without being
	// dispatched.
	stopped := false
	for _, t := range plan.Sequential {
		var tr job.TaskResult
		if stopped {
			tr = skippedResult(t)
		} else {
			tr = e.runTask(ctx, t, plan.DryRun)
			if plan.StopOnError && tr.Failed() {
				stopped = true
			}
		}
		res.Append(tr)
		report(progressFn, len(res.TaskResults), total)
	}

	return e.finish(res), nil
}

// runParallel fans the parallel group out under the concurrency ceiling and
// returns results in submission order
func (e *Engine) runParallel(ctx context.Context, tasks []job.Task, limit int, dryRun bool) []job.TaskResult {
	type indexed struct {
		index  int
		result job.TaskResult
	}

	sem := make(chan struct{}, limit)
	outcomes := make(chan indexed, len(tasks))

	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(index int, task job.Task) {
			defer wg.Done()

			// Scoped acquisition: the slot is released on every exit
			// path, including handler panics recovered in runTask
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes <- indexed{index: index, result: e.runTask(ctx, task, dryRun)}
		}(i, t)
	}

	wg.Wait()
	close(outcomes)

	// Single aggregation path: only this goroutine touches the slice
	results := make([]job.TaskResult, len(tasks))
	for o := range outcomes {
		results[o.index] = o.result
	}
	return results
}

// effectiveLimit computes min(planLimit, engineLimit), treating zero or
// negative planLimit as "no plan-level request"
func (e *Engine) effectiveLimit(planLimit int) int {
	limit := e.cfg.MaxParallel
	if planLimit > 0 && planLimit < limit {
		limit = planLimit
	}
	return limit
}

// failAll records a FAILED result for every task without dispatching any of
// them. Used for job-level short-circuits.
func (e *Engine) failAll(res *job.Result, tasks []job.Task, err error) {
	now := time.Now()
	for _, t := range tasks {
		res.Append(job.TaskResult{
			TaskID:      t.ID,
			Type:        t.Type,
			Operation:   t.Operation,
			Status:      job.StatusFailed,
			Error:       err.Error(),
			CompletedAt: now,
		})
	}
}

// finish classifies and records the job result
func (e *Engine) finish(res *job.Result) *job.Result {
	res.Merged = merge.Merge(res.TaskResults)
	res.Finalize()
	e.recordFinal(res)

	e.logger.Info("job finished",
		"job_id", res.JobID,
		"status", res.Status,
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", res.TotalDuration)

	return res
}

// recordCreate writes the RUNNING job to the ledger at submission
func (e *Engine) recordCreate(res *job.Result) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Create(res); err != nil {
		e.logger.Warn("failed to record job in ledger", "job_id", res.JobID, "error", err)
	}
}

// recordFinal replaces the ledger entry with the finalized result
func (e *Engine) recordFinal(res *job.Result) {
	if e.ledger == nil {
		return
	}
	e.ledger.Put(res)
}

// skippedResult builds the result for a task never dispatched because an
// earlier sequential task failed under stop-on-error
func skippedResult(t job.Task) job.TaskResult {
	return job.TaskResult{
		TaskID:      t.ID,
		Type:        t.Type,
		Operation:   t.Operation,
		Status:      job.StatusSkipped,
		Error:       "skipped: earlier sequential task failed",
		CompletedAt: time.Now(),
	}
}

// report invokes the progress callback if one was provided
func report(progressFn ProgressFunc, completed, total int) {
	if progressFn != nil {
		progressFn(completed, total)
	}
}
