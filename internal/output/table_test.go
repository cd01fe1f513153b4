package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
)

func sampleJobResult() *job.Result {
	res := job.NewResult("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	res.Append(job.TaskResult{
		TaskID:    "11111111-2222-3333-4444-555555555555",
		Type:      "investigate",
		Operation: job.OpRun,
		Status:    job.StatusCompleted,
		Duration:  120 * time.Millisecond,
		Payload:   map[string]interface{}{"findings": []string{"latency spike"}},
	})
	res.Append(job.TaskResult{
		TaskID:    "66666666-7777-8888-9999-000000000000",
		Type:      "security_scan",
		Operation: job.OpRun,
		Status:    job.StatusFailed,
		Error:     "scan refused",
		Duration:  80 * time.Millisecond,
	})
	res.Append(job.TaskResult{
		TaskID:    "abcdefab-1111-2222-3333-444444444444",
		Type:      "remediate",
		Operation: job.OpRun,
		Status:    job.StatusSkipped,
	})
	res.Merged = &job.MergedPayload{
		Lists:   map[string][]interface{}{"findings": {"latency spike"}},
		Scalars: map[string]map[string]interface{}{"confidence": {"investigate": 0.8}},
	}
	res.Finalize()
	return res
}

func TestTableFormatter_FormatJob(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true})

	if err := f.FormatJob(&buf, sampleJobResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, fragment := range []string{
		"TASK", "TYPE", "OPERATION", "STATUS", "DURATION",
		"investigate", "security_scan", "remediate",
		"COMPLETED", "FAILED", "SKIPPED",
		"3 total, 1 succeeded, 1 failed, 1 skipped",
		"findings:", "latency spike", "confidence[investigate]: 0.8",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("expected %q in output:\n%s", fragment, out)
		}
	}

	// Task IDs are truncated for display
	if strings.Contains(out, "11111111-2222") {
		t.Error("expected truncated task IDs")
	}
	if !strings.Contains(out, "11111111") {
		t.Error("expected short task ID")
	}
}

func TestTableFormatter_FormatJobNil(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(nil)

	if err := f.FormatJob(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No result") {
		t.Errorf("expected placeholder for nil result, got %q", buf.String())
	}
}

func TestTableFormatter_FormatJobWide(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true, Wide: true})

	if err := f.FormatJob(&buf, sampleJobResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "DETAIL") {
		t.Error("expected DETAIL column in wide output")
	}
	if !strings.Contains(out, "scan refused") {
		t.Error("expected error detail in wide output")
	}
}

func TestTableFormatter_FormatJobNoHeaders(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true, NoHeaders: true})

	if err := f.FormatJob(&buf, sampleJobResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "OPERATION") {
		t.Error("expected no headers")
	}
}

func TestTableFormatter_FormatJobs(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true})

	results := []*job.Result{sampleJobResult(), sampleJobResult()}
	if err := f.FormatJobs(&buf, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, fragment := range []string{"JOB", "STATUS", "TOTAL", "OK", "FAILED", "SKIPPED", "aaaaaaaa"} {
		if !strings.Contains(out, fragment) {
			t.Errorf("expected %q in output:\n%s", fragment, out)
		}
	}
}

func TestTableFormatter_FormatJobsEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(nil)

	if err := f.FormatJobs(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No jobs") {
		t.Errorf("expected placeholder, got %q", buf.String())
	}
}

func TestTableFormatter_DryRunMarker(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true})

	res := sampleJobResult()
	res.DryRun = true
	if err := f.FormatJob(&buf, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "(dry run)") {
		t.Error("expected dry-run marker in summary")
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", "aaaaaaaa"},
		{"short", "short"},
		{"", ""},
		{"12345678", "12345678"},
	}

	for _, tt := range tests {
		if got := shortID(tt.input); got != tt.expected {
			t.Errorf("shortID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTableFormatter_SkippedDuration(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true})

	res := job.NewResult("job-1")
	res.Append(job.TaskResult{
		TaskID: "task-1", Type: "remediate", Operation: job.OpRun, Status: job.StatusSkipped,
	})
	res.Finalize()

	if err := f.FormatJob(&buf, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Skipped tasks show a dash instead of a zero duration
	if !strings.Contains(buf.String(), "-") {
		t.Errorf("expected dash duration for skipped task:\n%s", buf.String())
	}
}
