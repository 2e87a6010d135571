package store

import (
	"Jarvis_Memory/internal/models"
	"context"
)

// Store defines the relational half of the memory dual-store: typed CRUD over
// the authoritative MemoryRecord rows. The vector index is never consulted
// here.
type Store interface {
	// Create inserts a new record. A missing ID is generated by the store.
	Create(ctx context.Context, record *models.MemoryRecord) error

	// GetByID returns the record, or nil without error when no row matches.
	GetByID(ctx context.Context, id string) (*models.MemoryRecord, error)

	// GetByIDs fetches all records matching the id set in a single query.
	// The relational store's own ordering is irrelevant to callers.
	GetByIDs(ctx context.Context, ids []string) ([]*models.MemoryRecord, error)

	// Update persists content/type/vectorID changes of an existing record.
	Update(ctx context.Context, record *models.MemoryRecord) error

	// SetVectorID patches only the vectorID column of the given row.
	SetVectorID(ctx context.Context, id, vectorID string) error

	// Delete removes the row. Returns false without error when no row matched.
	Delete(ctx context.Context, id string) (bool, error)

	// ListByUser returns every record of the user, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]*models.MemoryRecord, error)
}
