package service

import (
	"Jarvis_Memory/internal/embedding"
	"Jarvis_Memory/internal/memory/store"
	"Jarvis_Memory/internal/models"
	"Jarvis_Memory/internal/vectorstore"
	"context"
	"fmt"

	"Jarvis_Memory/pkg/logger"
)

const defaultSearchLimit = 5

// MemoryService coordinates the memory dual-store: MySQL rows are the ground
// truth, the vector index is a derived, rebuildable view keyed by the same
// ids. There are no cross-store transactions; every vector operation is an
// idempotent upsert/delete so that any partial state is recoverable via
// Reindex. Concurrent writes to the same id are last-write-wins per store;
// callers needing strict ordering must serialize per id externally.
type MemoryService struct {
	records    store.Store
	index      vectorstore.Index
	embedder   embedding.Embedding
	collection string
	dimension  int
	logger     *logger.Logger
}

// NewMemoryService creates a new MemoryService. All dependencies are
// injected; nothing is resolved from package-level state.
func NewMemoryService(records store.Store, index vectorstore.Index, embedder embedding.Embedding, collection string, dimension int, logger *logger.Logger) *MemoryService {
	return &MemoryService{
		records:    records,
		index:      index,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}
}

// EnsureReady initializes the vector collection. Safe to call redundantly and
// concurrently.
func (s *MemoryService) EnsureReady(ctx context.Context) error {
	return s.index.EnsureCollection(ctx, s.collection, s.dimension)
}

// AddMemory runs the three-phase write: insert the relational row with
// vectorID unset, embed the content, upsert the vector point keyed by the new
// id, then patch the row's vectorID to its own id. A failure after the insert
// leaves a valid unindexed record: degraded, not corrupt, and repairable by
// Reindex. The returned record reflects the actual persisted state.
func (s *MemoryService) AddMemory(ctx context.Context, content, memType, userID string) (*models.MemoryRecord, error) {
	record := &models.MemoryRecord{
		Content: content,
		Type:    memType,
		UserID:  userID,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create memory record: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"memory_id": record.ID}).
			Warn("memory stored without vector index entry")
		return record, nil
	}

	point := vectorstore.Point{
		ID:     record.ID,
		Vector: vector,
		UserID: userID,
		Payload: map[string]interface{}{
			"content":   content,
			"type":      record.Type,
			"record_id": record.ID,
		},
	}
	if err := s.index.Upsert(ctx, s.collection, point); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"memory_id": record.ID}).
			Warn("memory stored without vector index entry")
		return record, nil
	}

	if err := s.records.SetVectorID(ctx, record.ID, record.ID); err != nil {
		// The vector already points at a valid id; the missing patch is harmless.
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"memory_id": record.ID}).
			Warn("failed to patch vector id on memory record")
		return record, nil
	}

	vectorID := record.ID
	record.VectorID = &vectorID
	return record, nil
}

// SimilaritySearch embeds the query, runs a cosine kNN for the top limit ids,
// batch-fetches the matching rows in one query and re-orders them to the
// index's ranking. Ids without a matching row (tombstoned) are silently
// dropped. The result has no duplicate ids and at most limit entries.
// Dependency failures degrade to an empty result and are logged.
func (s *MemoryService) SimilaritySearch(ctx context.Context, query string, limit int) ([]*models.MemoryRecord, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to embed search query")
		return nil, nil
	}

	hits, err := s.index.Search(ctx, s.collection, vector, limit, nil)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("vector search failed")
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		ids = append(ids, hit.ID)
	}

	rows, err := s.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memory records: %w", err)
	}
	byID := make(map[string]*models.MemoryRecord, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	// Preserve the index ranking; the relational ordering is irrelevant.
	results := make([]*models.MemoryRecord, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			results = append(results, row)
		}
	}
	return results, nil
}

// UpdateMemory returns nil without side effects when no record matches. The
// new embedding is computed before any store is mutated, so an embedding
// failure can never leave the row and its vector disagreeing about content.
func (s *MemoryService) UpdateMemory(ctx context.Context, id, content, memType string) (*models.MemoryRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory record: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	// Embed first: no mutation happens if the embedding service is down.
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed updated content: %w", err)
	}

	record.Content = content
	if memType != "" {
		record.Type = memType
	}
	vectorID := record.ID
	record.VectorID = &vectorID
	if err := s.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update memory record: %w", err)
	}

	point := vectorstore.Point{
		ID:     record.ID,
		Vector: vector,
		UserID: record.UserID,
		Payload: map[string]interface{}{
			"content":   record.Content,
			"type":      record.Type,
			"record_id": record.ID,
		},
	}
	if err := s.index.Upsert(ctx, s.collection, point); err != nil {
		// Row updated, point stale: bounded by the next successful write.
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"memory_id": record.ID}).
			Warn("vector point not refreshed after memory update")
	}

	return record, nil
}

// DeleteMemory deletes the authoritative row first and aborts when that
// fails. The vector delete is idempotent and treats absence as success; an
// orphaned point left by a vector-side failure is tolerated transiently.
func (s *MemoryService) DeleteMemory(ctx context.Context, id string) (bool, error) {
	deleted, err := s.records.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete memory record: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.index.Delete(ctx, s.collection, []string{id}); err != nil {
		return false, fmt.Errorf("failed to delete vector point: %w", err)
	}
	return true, nil
}

// ListMemories returns all of the user's records, most recently updated
// first. Relational-only read; the index is not consulted.
func (s *MemoryService) ListMemories(ctx context.Context, userID string) ([]*models.MemoryRecord, error) {
	return s.records.ListByUser(ctx, userID)
}

// Reindex rebuilds the user's slice of the vector index from the relational
// ground truth: every row is re-embedded, re-upserted and has its vectorID
// patched. Per-record failures are logged and skipped so one bad row cannot
// block recovery. Returns the number of records successfully reindexed.
func (s *MemoryService) Reindex(ctx context.Context, userID string) (int, error) {
	rows, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list memory records: %w", err)
	}

	reindexed := 0
	for _, row := range rows {
		vector, err := s.embedder.Embed(ctx, row.Content)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"memory_id": row.ID}).
				Warn("reindex: embedding failed, skipping record")
			continue
		}
		point := vectorstore.Point{
			ID:     row.ID,
			Vector: vector,
			UserID: row.UserID,
			Payload: map[string]interface{}{
				"content":   row.Content,
				"type":      row.Type,
				"record_id": row.ID,
			},
		}
		if err := s.index.Upsert(ctx, s.collection, point); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"memory_id": row.ID}).
				Warn("reindex: vector upsert failed, skipping record")
			continue
		}
		if row.VectorID == nil {
			if err := s.records.SetVectorID(ctx, row.ID, row.ID); err != nil {
				s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
					WithPayload(map[string]interface{}{"memory_id": row.ID}).
					Warn("reindex: failed to patch vector id")
			}
		}
		reindexed++
	}
	return reindexed, nil
}
