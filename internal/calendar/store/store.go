package store

import (
	"Jarvis_Memory/internal/models"
	"context"
	"time"
)

// Store defines the relational half of the calendar dual-store. Local rows
// own event identity; provider copies and vector points are parallel,
// non-authoritative representations.
type Store interface {
	// Create inserts a new event row. A missing ID is generated by the store.
	// Inserting a second row for an (externalEventID, userID) pair that
	// already exists fails with a duplicate error.
	Create(ctx context.Context, event *models.CalendarEvent) error

	// GetByID returns the event, or nil without error when no row matches.
	GetByID(ctx context.Context, id string) (*models.CalendarEvent, error)

	// Update persists the full event row.
	Update(ctx context.Context, event *models.CalendarEvent) error

	// MarkSynced patches the provider linkage columns after a successful
	// remote create.
	MarkSynced(ctx context.Context, id, externalEventID, externalCalendarID string) error

	// Delete removes the row. Returns false without error when no row matched.
	Delete(ctx context.Context, id string) (bool, error)

	// FindOverlapping returns the user's events overlapping [start, end]
	// using three-way interval overlap (starts in range, ends in range, or
	// spans the range), sorted by start ascending.
	FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]*models.CalendarEvent, error)

	// ListByUser returns every event of the user, sorted by start ascending.
	// Used by the index recovery path.
	ListByUser(ctx context.Context, userID string) ([]*models.CalendarEvent, error)
}
