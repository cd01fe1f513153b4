package output

import (
	"io"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// FormatJob outputs one job result as YAML
func (f *YAMLFormatter) FormatJob(w io.Writer, res *job.Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(res)
}

// FormatJobs outputs a job listing as YAML
func (f *YAMLFormatter) FormatJobs(w io.Writer, results []*job.Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(results)
}
