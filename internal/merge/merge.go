// Package merge combines completed task payloads into one job-level payload
// using a type-keyed strategy: list-valued fields are concatenated across
// results, scalar fields are recorded per logical type so contributions from
// different task types never overwrite each other.
package merge

import (
	"sort"

	"github.com/arjunmalhotra/opsrun/internal/job"
)

// Merge combines the payloads of COMPLETED results into a MergedPayload.
// Failed, timed-out, and skipped results contribute nothing here; they only
// affect the job counters. Input order is submission order, so concatenated
// lists are deterministic for a given set of outcomes.
func Merge(results []job.TaskResult) *job.MergedPayload {
	merged := &job.MergedPayload{
		Lists:   make(map[string][]interface{}),
		Scalars: make(map[string]map[string]interface{}),
	}

	for _, r := range results {
		if r.Status != job.StatusCompleted || len(r.Payload) == 0 {
			continue
		}
		mergeOne(merged, r.Type, r.Payload)
	}

	if len(merged.Lists) == 0 {
		merged.Lists = nil
	}
	if len(merged.Scalars) == 0 {
		merged.Scalars = nil
	}
	return merged
}

// mergeOne folds a single payload into the aggregate. Field names are
// visited in sorted order so repeated merges of the same inputs always
// build identical structures.
func mergeOne(merged *job.MergedPayload, logicalType string, payload map[string]interface{}) {
	fields := make([]string, 0, len(payload))
	for f := range payload {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value := payload[field]

		if items, ok := asList(value); ok {
			merged.Lists[field] = append(merged.Lists[field], items...)
			continue
		}

		// Scalar: record keyed by logical type rather than overwriting
		byType, ok := merged.Scalars[field]
		if !ok {
			byType = make(map[string]interface{})
			merged.Scalars[field] = byType
		}
		byType[logicalType] = value
	}
}

// asList normalizes the list shapes handlers produce. YAML and JSON
// decoding yield []interface{}; handlers written in Go tend to return
// typed slices.
func asList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, true
	case []map[string]interface{}:
		items := make([]interface{}, len(v))
		for i, m := range v {
			items[i] = m
		}
		return items, true
	}
	return nil, false
}
