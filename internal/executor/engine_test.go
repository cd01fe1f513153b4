package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/ledger"
	"github.com/arjunmalhotra/opsrun/internal/registry"
	"github.com/arjunmalhotra/opsrun/internal/util"
)

// recordingHandler is a configurable test handler that counts invocations
// and can fail, sleep, or panic per item.
type recordingHandler struct {
	mu        sync.Mutex
	calls     int32
	validates int32

	// failOn returns an error for inputs it wants to fail
	failOn func(input map[string]interface{}) error

	// delay holds every invocation for the given duration
	delay time.Duration

	// panicOn triggers a panic for matching inputs
	panicOn func(input map[string]interface{}) bool

	// active tracks the concurrency high-water mark
	active  int32
	maxSeen int32

	// rejectMsg is returned from Validate when non-empty
	rejectMsg func(item map[string]interface{}) string
}

func (h *recordingHandler) Run(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	atomic.AddInt32(&h.calls, 1)

	n := atomic.AddInt32(&h.active, 1)
	defer atomic.AddInt32(&h.active, -1)
	h.mu.Lock()
	if n > h.maxSeen {
		h.maxSeen = n
	}
	h.mu.Unlock()

	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if h.panicOn != nil && h.panicOn(input) {
		panic("handler exploded")
	}
	if h.failOn != nil {
		if err := h.failOn(input); err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{
		"processed": []string{fmt.Sprintf("%v", input["item"])},
	}, nil
}

func (h *recordingHandler) Validate(item map[string]interface{}, operation string) string {
	atomic.AddInt32(&h.validates, 1)
	if h.rejectMsg != nil {
		return h.rejectMsg(item)
	}
	return ""
}

func (h *recordingHandler) callCount() int {
	return int(atomic.LoadInt32(&h.calls))
}

func (h *recordingHandler) peakConcurrency() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int(h.maxSeen)
}

func newTestEngine(t *testing.T, cfg Config, handlers map[string]interface{}) *Engine {
	t.Helper()

	reg := registry.New(nil)
	for typ, h := range handlers {
		reg.Register(typ, h)
	}
	return NewEngine(cfg, reg, nil, nil)
}

func parallelPlan(taskType string, n int) *job.Plan {
	plan := job.NewPlan(job.PriorityMedium)
	for i := 0; i < n; i++ {
		plan.Parallel = append(plan.Parallel,
			job.NewTask(taskType, job.OpRun, map[string]interface{}{"item": i}))
	}
	return plan
}

func sequentialPlan(taskType string, n int) *job.Plan {
	plan := job.NewPlan(job.PriorityMedium)
	for i := 0; i < n; i++ {
		plan.Sequential = append(plan.Sequential,
			job.NewTask(taskType, job.OpRun, map[string]interface{}{"item": i}))
	}
	return plan
}

func TestExecuteParallelPartialFailure(t *testing.T) {
	handler := &recordingHandler{
		failOn: func(input map[string]interface{}) error {
			if input["item"] == 2 {
				return errors.New("boom")
			}
			return nil
		},
	}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 5)
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != job.JobPartial {
		t.Errorf("expected PARTIAL, got %s", res.Status)
	}
	if res.Succeeded != 4 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("expected 4/1/0 counters, got %d/%d/%d", res.Succeeded, res.Failed, res.Skipped)
	}

	// The failing item's error message is captured verbatim on its result
	failing := res.TaskResults[2]
	if failing.Status != job.StatusFailed {
		t.Errorf("expected item 2 FAILED, got %s", failing.Status)
	}
	if failing.Error != "boom" {
		t.Errorf("expected error %q, got %q", "boom", failing.Error)
	}

	for i, tr := range res.TaskResults {
		if i == 2 {
			continue
		}
		if tr.Status != job.StatusCompleted {
			t.Errorf("item %d: expected COMPLETED, got %s", i, tr.Status)
		}
	}
}

func TestExecuteConcurrencyCeiling(t *testing.T) {
	handler := &recordingHandler{delay: 20 * time.Millisecond}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 10)
	plan.MaxParallel = 2

	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != job.JobCompleted {
		t.Errorf("expected COMPLETED, got %s", res.Status)
	}
	if handler.callCount() != 10 {
		t.Errorf("expected 10 invocations, got %d", handler.callCount())
	}
	if peak := handler.peakConcurrency(); peak > 2 {
		t.Errorf("concurrency ceiling violated: observed %d simultaneous handlers", peak)
	}
}

func TestExecuteEffectiveLimitIsMin(t *testing.T) {
	tests := []struct {
		name        string
		engineLimit int
		planLimit   int
		expected    int
	}{
		{name: "plan below engine", engineLimit: 8, planLimit: 3, expected: 3},
		{name: "engine below plan", engineLimit: 2, planLimit: 16, expected: 2},
		{name: "plan unset uses engine", engineLimit: 4, planLimit: 0, expected: 4},
		{name: "negative plan ignored", engineLimit: 4, planLimit: -1, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, Config{MaxParallel: tt.engineLimit}, nil)
			if got := engine.effectiveLimit(tt.planLimit); got != tt.expected {
				t.Errorf("effectiveLimit(%d) with engine %d = %d, want %d",
					tt.planLimit, tt.engineLimit, got, tt.expected)
			}
		})
	}
}

func TestExecuteSequentialStopOnError(t *testing.T) {
	var order []int
	var mu sync.Mutex

	handler := &recordingHandler{
		failOn: func(input map[string]interface{}) error {
			mu.Lock()
			order = append(order, input["item"].(int))
			mu.Unlock()
			if input["item"] == 1 {
				return errors.New("sequential failure")
			}
			return nil
		},
	}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	plan := sequentialPlan("work", 4)
	plan.StopOnError = true

	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStatus := []job.TaskStatus{
		job.StatusCompleted, job.StatusFailed, job.StatusSkipped, job.StatusSkipped,
	}
	for i, want := range wantStatus {
		if res.TaskResults[i].Status != want {
			t.Errorf("task %d: expected %s, got %s", i, want, res.TaskResults[i].Status)
		}
	}

	// Skipped tasks were never dispatched
	if handler.callCount() != 2 {
		t.Errorf("expected 2 invocations, got %d", handler.callCount())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Errorf("expected dispatch order [0 1], got %v", order)
	}

	if res.Status != job.JobPartial {
		t.Errorf("expected PARTIAL, got %s", res.Status)
	}
	if res.Succeeded != 1 || res.Failed != 1 || res.Skipped != 2 {
		t.Errorf("expected 1/1/2 counters, got %d/%d/%d", res.Succeeded, res.Failed, res.Skipped)
	}
}

func TestExecuteSequentialContinueOnError(t *testing.T) {
	handler := &recordingHandler{
		failOn: func(input map[string]interface{}) error {
			if input["item"] == 1 {
				return errors.New("failure without stop")
			}
			return nil
		},
	}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	plan := sequentialPlan("work", 4)
	plan.StopOnError = false

	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if handler.callCount() != 4 {
		t.Errorf("expected all 4 invocations, got %d", handler.callCount())
	}
	if res.Skipped != 0 {
		t.Errorf("expected no skipped tasks, got %d", res.Skipped)
	}
	if res.Succeeded != 3 || res.Failed != 1 {
		t.Errorf("expected 3/1 counters, got %d/%d", res.Succeeded, res.Failed)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), nil)

	res, err := engine.Execute(context.Background(), job.NewPlan(job.PriorityMedium))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != job.JobCompleted {
		t.Errorf("expected empty job COMPLETED, got %s", res.Status)
	}
	if res.Total != 0 {
		t.Errorf("expected total 0, got %d", res.Total)
	}
	if !res.Merged.Empty() {
		t.Error("expected empty merged payload")
	}
}

func TestExecuteNilPlan(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), nil)

	_, err := engine.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for nil plan")
	}
	if !errors.Is(err, util.ErrInvalidPlan) {
		t.Errorf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestExecuteMalformedPlan(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), nil)

	plan := job.NewPlan(job.PriorityMedium)
	plan.Parallel = []job.Task{{ID: "t-1", Type: "work", Operation: "explode"}}

	_, err := engine.Execute(context.Background(), plan)
	if !errors.Is(err, util.ErrInvalidPlan) {
		t.Errorf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestExecuteBatchTooLarge(t *testing.T) {
	handler := &recordingHandler{}
	engine := newTestEngine(t, Config{MaxBatchSize: 3}, map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 5)
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != job.JobFailed {
		t.Errorf("expected FAILED, got %s", res.Status)
	}
	if res.Failed != 5 || res.Succeeded != 0 {
		t.Errorf("expected every task FAILED, got %d/%d", res.Succeeded, res.Failed)
	}
	for _, tr := range res.TaskResults {
		if !strings.Contains(tr.Error, "batch size exceeds maximum") {
			t.Errorf("expected batch-size error on task, got %q", tr.Error)
		}
	}

	// Nothing was attempted
	if handler.callCount() != 0 {
		t.Errorf("expected zero invocations, got %d", handler.callCount())
	}
}

func TestExecuteSubmissionOrderPreserved(t *testing.T) {
	// Random per-task delays force completion order to diverge from
	// submission order
	rng := rand.New(rand.NewSource(42))
	var delays []time.Duration
	for i := 0; i < 12; i++ {
		delays = append(delays, time.Duration(rng.Intn(20))*time.Millisecond)
	}

	var idx int32
	handler := &recordingHandler{}
	handler.failOn = func(input map[string]interface{}) error {
		i := atomic.AddInt32(&idx, 1)
		time.Sleep(delays[int(i-1)%len(delays)])
		return nil
	}
	engine := newTestEngine(t, Config{MaxParallel: 6}, map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 12)
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.TaskResults) != 12 {
		t.Fatalf("expected 12 results, got %d", len(res.TaskResults))
	}
	for i, tr := range res.TaskResults {
		if tr.TaskID != plan.Parallel[i].ID {
			t.Errorf("result %d holds task %s, want %s", i, tr.TaskID, plan.Parallel[i].ID)
		}
	}
}

func TestExecuteTimeoutIsolation(t *testing.T) {
	handler := &recordingHandler{
		failOn: func(input map[string]interface{}) error {
			if input["item"] == 1 {
				time.Sleep(500 * time.Millisecond)
			}
			return nil
		},
	}
	engine := newTestEngine(t, Config{MaxParallel: 4, DefaultTimeout: time.Second},
		map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 3)
	plan.Parallel[1].Timeout = 30 * time.Millisecond

	start := time.Now()
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slow := res.TaskResults[1]
	if slow.Status != job.StatusTimeout {
		t.Errorf("expected TIMEOUT, got %s", slow.Status)
	}
	if !strings.Contains(slow.Error, "timed out after") {
		t.Errorf("expected timeout message, got %q", slow.Error)
	}

	// Siblings complete normally and the job does not wait out the slow task
	for _, i := range []int{0, 2} {
		if res.TaskResults[i].Status != job.StatusCompleted {
			t.Errorf("task %d: expected COMPLETED, got %s", i, res.TaskResults[i].Status)
		}
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("job waited for abandoned task: %s", elapsed)
	}

	if res.Status != job.JobPartial {
		t.Errorf("expected PARTIAL, got %s", res.Status)
	}
}

func TestExecutePanicRecovery(t *testing.T) {
	handler := &recordingHandler{
		panicOn: func(input map[string]interface{}) bool {
			return input["item"] == 0
		},
	}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	plan := parallelPlan("work", 3)
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.TaskResults[0].Status != job.StatusFailed {
		t.Errorf("expected panicking task FAILED, got %s", res.TaskResults[0].Status)
	}
	if !strings.Contains(res.TaskResults[0].Error, "handler panic") {
		t.Errorf("expected panic message, got %q", res.TaskResults[0].Error)
	}
	if res.Succeeded != 2 {
		t.Errorf("expected siblings unaffected, got %d succeeded", res.Succeeded)
	}
}

func TestExecuteCountersInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	handler := &recordingHandler{
		failOn: func(input map[string]interface{}) error {
			if input["item"].(int)%3 == 0 {
				return errors.New("every third fails")
			}
			return nil
		},
	}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	for round := 0; round < 5; round++ {
		plan := job.NewPlan(job.PriorityMedium)
		nPar := rng.Intn(8)
		nSeq := rng.Intn(5)
		for i := 0; i < nPar; i++ {
			plan.Parallel = append(plan.Parallel,
				job.NewTask("work", job.OpRun, map[string]interface{}{"item": i}))
		}
		for i := 0; i < nSeq; i++ {
			plan.Sequential = append(plan.Sequential,
				job.NewTask("work", job.OpRun, map[string]interface{}{"item": nPar + i}))
		}
		plan.StopOnError = round%2 == 0

		res, err := engine.Execute(context.Background(), plan)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}

		if res.Succeeded+res.Failed+res.Skipped != res.Total {
			t.Errorf("round %d: counters %d+%d+%d != total %d", round,
				res.Succeeded, res.Failed, res.Skipped, res.Total)
		}
		if res.Total != nPar+nSeq {
			t.Errorf("round %d: expected total %d, got %d", round, nPar+nSeq, res.Total)
		}
		if !res.Status.Terminal() {
			t.Errorf("round %d: job finished in non-terminal status %s", round, res.Status)
		}
	}
}

func TestExecuteProgressCallback(t *testing.T) {
	handler := &recordingHandler{}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	var calls [][2]int
	progress := func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	}

	plan := parallelPlan("work", 3)
	plan.Sequential = append(plan.Sequential,
		job.NewTask("work", job.OpRun, map[string]interface{}{"item": 3}))

	if _, err := engine.ExecuteWithProgress(context.Background(), plan, progress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 4 {
		t.Fatalf("expected 4 progress callbacks, got %d", len(calls))
	}
	for i, c := range calls {
		if c[0] != i+1 || c[1] != 4 {
			t.Errorf("callback %d: expected (%d, 4), got (%d, %d)", i, i+1, c[0], c[1])
		}
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	handler := &recordingHandler{}
	engine := newTestEngine(t, DefaultConfig(), map[string]interface{}{"work": handler})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Execute(ctx, parallelPlan("work", 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != job.JobFailed {
		t.Errorf("expected FAILED under cancelled context, got %s", res.Status)
	}
	for _, tr := range res.TaskResults {
		if !strings.Contains(tr.Error, "task not executed") {
			t.Errorf("expected not-executed message, got %q", tr.Error)
		}
	}
	if handler.callCount() != 0 {
		t.Errorf("expected zero invocations under cancelled context, got %d", handler.callCount())
	}
}

func TestExecuteRecordsLedger(t *testing.T) {
	reg := registry.New(nil)
	reg.Register("work", &recordingHandler{})
	led := ledger.NewStore(0, nil)
	engine := NewEngine(DefaultConfig(), reg, led, nil)

	plan := parallelPlan("work", 2)
	res, err := engine.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := led.Get(res.JobID)
	if err != nil {
		t.Fatalf("expected job in ledger: %v", err)
	}
	if stored.Status != job.JobCompleted {
		t.Errorf("expected finalized status in ledger, got %s", stored.Status)
	}
	if stored.Total != 2 {
		t.Errorf("expected 2 tasks in ledger entry, got %d", stored.Total)
	}
}

func TestNewEngineSanitizesConfig(t *testing.T) {
	engine := NewEngine(Config{MaxParallel: -1, MaxBatchSize: 0, DefaultTimeout: 0}, registry.New(nil), nil, nil)

	cfg := engine.Config()
	if cfg.MaxParallel != 1 {
		t.Errorf("expected MaxParallel floor of 1, got %d", cfg.MaxParallel)
	}
	if cfg.MaxBatchSize != DefaultConfig().MaxBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.MaxBatchSize)
	}
	if cfg.DefaultTimeout != DefaultConfig().DefaultTimeout {
		t.Errorf("expected default timeout, got %s", cfg.DefaultTimeout)
	}
}
