// Package executor provides the bounded-concurrency execution engine at the
// heart of opsrun.
//
// The engine consumes an execution plan, fans its parallel group out under a
// counting semaphore, then runs its sequential group in order, and folds every
// task outcome into one job-level result with a deterministic status.
//
// # Key Guarantees
//
//   - Concurrency in flight never exceeds min(plan.MaxParallel, engine MaxParallel)
//   - A concurrency slot is released on every exit path, including panics
//   - Per-task failures and timeouts are isolated: siblings are unaffected
//   - Task results appear in original submission order, not completion order
//   - Result aggregation happens on a single goroutine; no locking on the job result
//   - The counters always satisfy succeeded + failed + skipped == total
//
// # Basic Usage
//
// Build an engine over a handler registry, then execute a plan:
//
//	reg := registry.New(logger)
//	reg.Register("investigate", myAgent)
//
//	engine := executor.NewEngine(executor.DefaultConfig(), reg, led, logger)
//
//	plan := planner.NewBuilder(logger).Build(input, job.PriorityHigh)
//	result, err := engine.Execute(ctx, plan)
//
// # Bulk Entity Operations
//
// Apply one operation across a batch of items:
//
//	result, err := engine.ExecuteBatch(ctx, executor.BatchRequest{
//	    EntityType: "incident",
//	    Operation:  job.OpCreate,
//	    Items:      items,
//	})
//
// # Dry Runs
//
// Setting DryRun invokes only the handlers' validate capability; mutating
// capabilities are never called, so a caller gets an accurate PARTIAL/FAILED
// preview without side effects.
//
// # Error Handling
//
// Per-item errors never propagate past the engine boundary: handler errors,
// panics, timeouts, and validation rejections all finalize into task results.
// The only job-level conditions, a missing handler for a batch's entity type
// and an oversized batch, short-circuit into an all-failed result before any
// dispatch. The caller always receives one complete, structured job result.
//
// # Progress Reporting
//
// Track execution progress with a callback:
//
//	result, err := engine.ExecuteWithProgress(ctx, plan, func(completed, total int) {
//	    fmt.Printf("Progress: %d/%d\n", completed, total)
//	})
//
// Callbacks run on the aggregation path, never inside a task's goroutine.
package executor
