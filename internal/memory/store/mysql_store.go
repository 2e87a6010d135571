package store

import (
	"Jarvis_Memory/internal/models"
	"context"
	"errors"

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

// Create inserts a new memory record, generating the ID when absent.
func (s *MySQLStore) Create(ctx context.Context, record *models.MemoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Type == "" {
		record.Type = "general"
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// GetByID returns the record, or nil when no row matches.
func (s *MySQLStore) GetByID(ctx context.Context, id string) (*models.MemoryRecord, error) {
	var record models.MemoryRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByIDs fetches all records in the id set with one query.
func (s *MySQLStore) GetByIDs(ctx context.Context, ids []string) ([]*models.MemoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []*models.MemoryRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Update persists the full record.
func (s *MySQLStore) Update(ctx context.Context, record *models.MemoryRecord) error {
	return s.db.WithContext(ctx).Save(record).Error
}

// SetVectorID patches only the vector_id column.
func (s *MySQLStore) SetVectorID(ctx context.Context, id, vectorID string) error {
	return s.db.WithContext(ctx).
		Model(&models.MemoryRecord{}).
		Where("id = ?", id).
		Update("vector_id", vectorID).Error
}

// Delete removes the row; false means no row matched.
func (s *MySQLStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.MemoryRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser returns the user's records, most recently updated first.
func (s *MySQLStore) ListByUser(ctx context.Context, userID string) ([]*models.MemoryRecord, error) {
	var records []*models.MemoryRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

var _ Store = (*MySQLStore)(nil)
