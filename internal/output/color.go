package output

import (
	"io"
	"os"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// TaskType colors logical task types
	TaskType func(format string, a ...interface{}) string

	// Success colors successful statuses
	Success func(format string, a ...interface{}) string

	// Error colors failed statuses and error messages
	Error func(format string, a ...interface{}) string

	// Warning colors timeout and skipped statuses
	Warning func(format string, a ...interface{}) string

	// Header colors table headers
	Header func(format string, a ...interface{}) string

	// Duration colors duration values
	Duration func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme
// Colors are automatically disabled for non-TTY outputs or when noColor is true
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	// Determine if we should use colors
	useColor := !noColor && isTTY(w)

	if !useColor {
		// Return scheme with no-op color functions
		return &ColorScheme{
			TaskType: color.New().Sprintf,
			Success:  color.New().Sprintf,
			Error:    color.New().Sprintf,
			Warning:  color.New().Sprintf,
			Header:   color.New().Sprintf,
			Duration: color.New().Sprintf,
			Disabled: true,
		}
	}

	// Return scheme with actual colors
	return &ColorScheme{
		TaskType: color.New(color.FgCyan, color.Bold).Sprintf,
		Success:  color.New(color.FgGreen).Sprintf,
		Error:    color.New(color.FgRed, color.Bold).Sprintf,
		Warning:  color.New(color.FgYellow).Sprintf,
		Header:   color.New(color.FgWhite, color.Bold).Sprintf,
		Duration: color.New(color.FgBlue).Sprintf,
		Disabled: false,
	}
}

// isTTY checks if the writer is a TTY
func isTTY(w io.Writer) bool {
	// Check if writer is a file
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// TaskStatusColor returns the color function for a task status
func (cs *ColorScheme) TaskStatusColor(status job.TaskStatus) func(format string, a ...interface{}) string {
	switch status {
	case job.StatusCompleted:
		return cs.Success
	case job.StatusFailed:
		return cs.Error
	case job.StatusTimeout, job.StatusSkipped:
		return cs.Warning
	}
	return cs.Header
}

// JobStatusColor returns the color function for a job status
func (cs *ColorScheme) JobStatusColor(status job.JobStatus) func(format string, a ...interface{}) string {
	switch status {
	case job.JobCompleted:
		return cs.Success
	case job.JobFailed:
		return cs.Error
	case job.JobPartial:
		return cs.Warning
	}
	return cs.Header
}
