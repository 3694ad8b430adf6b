package memory

import (
	"context"
	"sync"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
)

// CredentialRepository provides an in-memory implementation of repository.CredentialRepository.
// Thread-safe for concurrent access.
type CredentialRepository struct {
	mu      sync.RWMutex
	records map[string]*repository.CredentialRecord // routing key -> record
}

// NewCredentialRepository creates a repository seeded with records.
func NewCredentialRepository(records ...repository.CredentialRecord) *CredentialRepository {
	r := &CredentialRepository{
		records: make(map[string]*repository.CredentialRecord, len(records)),
	}
	for i := range records {
		rec := records[i]
		r.records[rec.RoutingKey] = &rec
	}
	return r
}

// FindByRoutingKey returns a copy of the record for routingKey.
func (r *CredentialRepository) FindByRoutingKey(ctx context.Context, routingKey string) (*repository.CredentialRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[routingKey]
	if !ok {
		return nil, repository.ErrNotFound
	}

	// Return a copy to prevent external mutations
	recCopy := *rec
	return &recCopy, nil
}

// Save inserts or replaces a record.
func (r *CredentialRepository) Save(ctx context.Context, record *repository.CredentialRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recCopy := *record
	r.records[record.RoutingKey] = &recCopy
	return nil
}

// Replace swaps the whole record set.
func (r *CredentialRepository) Replace(records []repository.CredentialRecord) {
	next := make(map[string]*repository.CredentialRecord, len(records))
	for i := range records {
		rec := records[i]
		next[rec.RoutingKey] = &rec
	}

	r.mu.Lock()
	r.records = next
	r.mu.Unlock()
}

// Len returns the number of stored records.
func (r *CredentialRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
