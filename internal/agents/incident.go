package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// IncidentStore is an in-memory entity handler for incident records. It
// implements the create/update/delete/validate capabilities, which makes it
// the target for the bulk-operation and dry-run paths.
type IncidentStore struct {
	// records maps incident ID to its fields
	records map[string]map[string]interface{}

	// mu protects concurrent access when a batch fans out
	mu sync.Mutex

	// logger for structured logging
	logger *slog.Logger
}

// NewIncidentStore creates an empty incident store
func NewIncidentStore(logger *slog.Logger) *IncidentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncidentStore{
		records: make(map[string]map[string]interface{}),
		logger:  logger,
	}
}

// Create stores a new incident record
func (s *IncidentStore) Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := stringField(item, "id")
	if id == "" {
		return nil, fmt.Errorf("incident requires an id")
	}
	if stringField(item, "title") == "" {
		return nil, fmt.Errorf("incident %s requires a title", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; exists {
		return nil, fmt.Errorf("incident %s already exists", id)
	}

	record := copyItem(item)
	record["created_at"] = time.Now().UTC().Format(time.RFC3339)
	s.records[id] = record

	s.logger.Debug("incident created", "id", id)
	return map[string]interface{}{"id": id, "action": "created"}, nil
}

// Update merges new fields into an existing incident record
func (s *IncidentStore) Update(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := stringField(item, "id")
	if id == "" {
		return nil, fmt.Errorf("incident requires an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("incident %s not found", id)
	}

	for k, v := range item {
		if k != "id" {
			record[k] = v
		}
	}

	s.logger.Debug("incident updated", "id", id)
	return map[string]interface{}{"id": id, "action": "updated"}, nil
}

// Delete removes an incident record
func (s *IncidentStore) Delete(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := stringField(item, "id")
	if id == "" {
		return nil, fmt.Errorf("incident requires an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return nil, fmt.Errorf("incident %s not found", id)
	}

	delete(s.records, id)
	s.logger.Debug("incident deleted", "id", id)
	return map[string]interface{}{"id": id, "action": "deleted"}, nil
}

// Validate checks an item against the same rules the mutating capabilities
// enforce, without touching the store
func (s *IncidentStore) Validate(item map[string]interface{}, operation string) string {
	id := stringField(item, "id")
	if id == "" {
		return "incident requires an id"
	}

	switch operation {
	case "create":
		if stringField(item, "title") == "" {
			return fmt.Sprintf("incident %s requires a title", id)
		}
		s.mu.Lock()
		_, exists := s.records[id]
		s.mu.Unlock()
		if exists {
			return fmt.Sprintf("incident %s already exists", id)
		}
	case "update", "delete":
		s.mu.Lock()
		_, exists := s.records[id]
		s.mu.Unlock()
		if !exists {
			return fmt.Sprintf("incident %s not found", id)
		}
	}
	return ""
}

// Count returns the number of stored incidents
func (s *IncidentStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns a copy of an incident record
func (s *IncidentStore) Get(id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return copyItem(record), true
}

// copyItem copies an item map so the store never shares mutable state with
// callers
func copyItem(item map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
