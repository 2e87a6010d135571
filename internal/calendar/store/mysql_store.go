package store

import (
	"Jarvis_Memory/internal/models"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MySQLStore is the GORM-backed implementation of the Store interface.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore creates a new MySQLStore on an injected GORM handle.
func NewMySQLStore(db *gorm.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Create inserts a new event row, generating the ID when absent. The
// composite unique index on (external_event_id, user_id) rejects a second
// mirror of the same provider event.
func (s *MySQLStore) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(event).Error
}

// GetByID returns the event, or nil when no row matches.
func (s *MySQLStore) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update persists the full event row.
func (s *MySQLStore) Update(ctx context.Context, event *models.CalendarEvent) error {
	return s.db.WithContext(ctx).Save(event).Error
}

// MarkSynced patches the provider linkage columns.
func (s *MySQLStore) MarkSynced(ctx context.Context, id, externalEventID, externalCalendarID string) error {
	return s.db.WithContext(ctx).
		Model(&models.CalendarEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"external_event_id":    externalEventID,
			"external_calendar_id": externalCalendarID,
			"synced":               true,
		}).Error
}

// Delete removes the row; false means no row matched.
func (s *MySQLStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.CalendarEvent{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindOverlapping returns the user's events overlapping [start, end]:
// events starting in the range, ending in the range, or spanning it.
func (s *MySQLStore) FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]*models.CalendarEvent, error) {
	var events []*models.CalendarEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			s.db.Where("`start` BETWEEN ? AND ?", start, end).
				Or("`end` BETWEEN ? AND ?", start, end).
				Or("`start` <= ? AND `end` >= ?", start, end),
		).
		Order("`start` ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListByUser returns every event of the user, sorted by start ascending.
func (s *MySQLStore) ListByUser(ctx context.Context, userID string) ([]*models.CalendarEvent, error) {
	var events []*models.CalendarEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("`start` ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// IsDuplicate reports whether err is a unique-constraint violation. Used to
// tolerate the race of two overlapping pulls mirroring the same provider
// event.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

var _ Store = (*MySQLStore)(nil)
