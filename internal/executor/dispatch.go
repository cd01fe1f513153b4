package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/registry"
	"github.com/arjunmalhotra/opsrun/internal/util"
)

// BatchRequest describes a bulk entity operation: the same operation applied
// to every item under one logical type
type BatchRequest struct {
	// EntityType is the logical type whose handler performs the operation
	EntityType string

	// Operation is the capability applied to every item
	Operation job.Operation

	// Items are the entity payloads, one task each
	Items []map[string]interface{}

	// DryRun restricts the batch to validation only
	DryRun bool

	// Sequential runs items one at a time instead of fanning out
	Sequential bool

	// StopOnError marks remaining sequential items SKIPPED after a failure
	StopOnError bool

	// MaxParallel caps concurrency for this batch; zero means the engine
	// default
	MaxParallel int
}

// ExecuteBatch applies one operation to every item of a batch. Two
// conditions short-circuit at the job level before any dispatch: a missing
// handler for the entity type (every item immediately FAILED, zero handler
// methods invoked) and a batch larger than the configured maximum.
func (e *Engine) ExecuteBatch(ctx context.Context, req BatchRequest) (*job.Result, error) {
	if req.EntityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", util.ErrInvalidPlan)
	}
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: invalid operation %q", util.ErrInvalidPlan, req.Operation)
	}

	plan := job.NewPlan(job.PriorityMedium)
	plan.DryRun = req.DryRun
	plan.StopOnError = req.StopOnError
	plan.MaxParallel = req.MaxParallel

	for _, item := range req.Items {
		t := job.NewTask(req.EntityType, req.Operation, item)
		if req.Sequential {
			plan.Sequential = append(plan.Sequential, t)
		} else {
			plan.Parallel = append(plan.Parallel, t)
		}
	}

	// Configuration error is job-level for the homogeneous batch form:
	// fail every item up front rather than resolving the same absent
	// handler once per task
	if len(req.Items) > 0 && !e.registry.Has(req.EntityType) {
		res := job.NewResult(plan.ID)
		res.DryRun = req.DryRun
		e.recordCreate(res)
		e.failAll(res, plan.Tasks(), fmt.Errorf("%w for type %q", util.ErrHandlerNotFound, req.EntityType))
		return e.finish(res), nil
	}

	return e.Execute(ctx, plan)
}

// runTask dispatches a single task and converts every outcome, including
// handler panics and timeouts, into a finalized task result
func (e *Engine) runTask(ctx context.Context, t job.Task, dryRun bool) job.TaskResult {
	started := time.Now()
	tr := job.TaskResult{
		TaskID:    t.ID,
		Type:      t.Type,
		Operation: t.Operation,
		Status:    job.StatusRunning,
		StartedAt: started,
	}

	reg, ok := e.registry.Get(t.Type)
	if !ok {
		// No handler method is ever invoked for an unregistered type
		return finalize(tr, started, job.StatusFailed, nil,
			fmt.Sprintf("no handler registered for type %q", t.Type))
	}

	if err := ctx.Err(); err != nil {
		return finalize(tr, started, job.StatusFailed, nil,
			fmt.Sprintf("task not executed: %v", err))
	}

	if dryRun {
		return e.validateTask(tr, started, reg, t)
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}

	e.logger.Debug("dispatching task",
		"task_id", t.ID,
		"type", t.Type,
		"operation", t.Operation,
		"timeout", timeout)

	type outcome struct {
		payload map[string]interface{}
		err     error
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned invocation can still deliver its outcome
	// and let its goroutine exit
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		payload, err := invoke(tctx, reg, t)
		done <- outcome{payload: payload, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			e.logger.Warn("task failed",
				"task_id", t.ID,
				"type", t.Type,
				"error", o.err,
				"duration", time.Since(started))
			return finalize(tr, started, job.StatusFailed, nil, o.err.Error())
		}
		e.logger.Debug("task completed",
			"task_id", t.ID,
			"type", t.Type,
			"duration", time.Since(started))
		return finalize(tr, started, job.StatusCompleted, o.payload, "")

	case <-timer.C:
		// The in-flight invocation is abandoned, not awaited further;
		// sibling tasks are unaffected
		e.logger.Warn("task timed out",
			"task_id", t.ID,
			"type", t.Type,
			"timeout", timeout)
		return finalize(tr, started, job.StatusTimeout, nil,
			fmt.Sprintf("task timed out after %s", timeout))
	}
}

// validateTask runs the dry-run path: only the validate capability is
// invoked, and a non-empty message counts as a per-item failure
func (e *Engine) validateTask(tr job.TaskResult, started time.Time, reg registry.Registration, t job.Task) job.TaskResult {
	if !reg.Has(registry.CapValidate) {
		return finalize(tr, started, job.StatusFailed, nil,
			fmt.Sprintf("handler for type %q does not support validate", t.Type))
	}

	msg := reg.Handler.(registry.Validator).Validate(t.Input, string(t.Operation))
	if msg != "" {
		return finalize(tr, started, job.StatusFailed, nil, msg)
	}
	return finalize(tr, started, job.StatusCompleted, nil, "")
}

// invoke selects the handler capability matching the task's operation.
// For run, the specific TaskRunner entry point takes priority over the
// generic Runner; a handler with neither yields a sentinel failure.
func invoke(ctx context.Context, reg registry.Registration, t job.Task) (map[string]interface{}, error) {
	switch t.Operation {
	case job.OpCreate:
		if reg.Has(registry.CapCreate) {
			return reg.Handler.(registry.Creator).Create(ctx, t.Input)
		}
	case job.OpUpdate:
		if reg.Has(registry.CapUpdate) {
			return reg.Handler.(registry.Updater).Update(ctx, t.Input)
		}
	case job.OpDelete:
		if reg.Has(registry.CapDelete) {
			return reg.Handler.(registry.Deleter).Delete(ctx, t.Input)
		}
	case job.OpRun:
		if reg.Has(registry.CapRunTask) {
			return reg.Handler.(registry.TaskRunner).RunTask(ctx, t.ID, t.Type, t.Input)
		}
		if reg.Has(registry.CapRun) {
			return reg.Handler.(registry.Runner).Run(ctx, t.Input)
		}
		return nil, fmt.Errorf("%w: handler for type %q has no runnable capability",
			util.ErrCapabilityMissing, t.Type)
	}
	return nil, fmt.Errorf("%w: handler for type %q does not support %s",
		util.ErrCapabilityMissing, t.Type, t.Operation)
}

// finalize stamps the terminal status, duration, and completion time on a
// task result. Results are never mutated after this point.
func finalize(tr job.TaskResult, started time.Time, status job.TaskStatus, payload map[string]interface{}, errMsg string) job.TaskResult {
	tr.Status = status
	tr.Payload = payload
	tr.Error = errMsg
	tr.CompletedAt = time.Now()
	tr.Duration = tr.CompletedAt.Sub(started)
	return tr
}
