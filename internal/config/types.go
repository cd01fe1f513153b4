package config

import "time"

// OpsrunConfig represents the opsrun configuration file structure
type OpsrunConfig struct {
	// Defaults contains default settings for job execution
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty" mapstructure:"defaults"`

	// Retention is how long terminal jobs stay in the ledger
	Retention time.Duration `yaml:"retention,omitempty" json:"retention,omitempty" mapstructure:"retention"`
}

// DefaultsConfig contains default execution values
type DefaultsConfig struct {
	// Timeout bounds a single task's handler invocation
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`

	// Parallel is the engine concurrency ceiling
	Parallel int `yaml:"parallel,omitempty" json:"parallel,omitempty" mapstructure:"parallel"`

	// MaxBatch caps the number of tasks a single job may carry
	MaxBatch int `yaml:"maxBatch,omitempty" json:"maxBatch,omitempty" mapstructure:"maxBatch"`

	// StopOnError marks remaining sequential tasks SKIPPED after a failure
	StopOnError bool `yaml:"stopOnError,omitempty" json:"stopOnError,omitempty" mapstructure:"stopOnError"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty" mapstructure:"outputFormat"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty" mapstructure:"noColor"`
}
