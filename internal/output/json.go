package output

import (
	"encoding/json"
	"io"

	"github.com/arjunmalhotra/opsrun/internal/job"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// FormatJob outputs one job result as JSON
func (f *JSONFormatter) FormatJob(w io.Writer, res *job.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

// FormatJobs outputs a job listing as JSON
func (f *JSONFormatter) FormatJobs(w io.Writer, results []*job.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
