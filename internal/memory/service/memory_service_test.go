package service

import (
	"Jarvis_Memory/internal/models"
	"Jarvis_Memory/internal/vectorstore"
	"Jarvis_Memory/pkg/logger"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"
)

const testCollection = "memories_test"

// fakeStore is an in-memory implementation of store.Store.
type fakeStore struct {
	records map[string]*models.MemoryRecord
	nextID  int
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.MemoryRecord{}}
}

func (f *fakeStore) Create(_ context.Context, record *models.MemoryRecord) error {
	if f.failAll {
		return errors.New("store down")
	}
	if record.ID == "" {
		f.nextID++
		record.ID = fmt.Sprintf("mem-%d", f.nextID)
	}
	if record.Type == "" {
		record.Type = "general"
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.MemoryRecord, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	record, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (f *fakeStore) GetByIDs(_ context.Context, ids []string) ([]*models.MemoryRecord, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []*models.MemoryRecord
	for _, id := range ids {
		if record, ok := f.records[id]; ok {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, record *models.MemoryRecord) error {
	if f.failAll {
		return errors.New("store down")
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeStore) SetVectorID(_ context.Context, id, vectorID string) error {
	if f.failAll {
		return errors.New("store down")
	}
	record, ok := f.records[id]
	if !ok {
		return nil
	}
	record.VectorID = &vectorID
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	if f.failAll {
		return false, errors.New("store down")
	}
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]*models.MemoryRecord, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []*models.MemoryRecord
	for _, record := range f.records {
		if record.UserID == userID {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeIndex is an in-memory vectorstore.Index that ranks by real cosine
// similarity, so search tests exercise actual ranking behavior.
type fakeIndex struct {
	points     map[string]map[string]vectorstore.Point
	failUpsert bool
	failSearch bool
	failDelete bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string]map[string]vectorstore.Point{}}
}

func (f *fakeIndex) EnsureCollection(_ context.Context, collection string, _ int) error {
	if f.points[collection] == nil {
		f.points[collection] = map[string]vectorstore.Point{}
	}
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, collection string, point vectorstore.Point) error {
	if f.failUpsert {
		return errors.New("index down")
	}
	if f.points[collection] == nil {
		f.points[collection] = map[string]vectorstore.Point{}
	}
	f.points[collection][point.ID] = point
	return nil
}

func (f *fakeIndex) Search(_ context.Context, collection string, vector []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	if f.failSearch {
		return nil, errors.New("index down")
	}
	var hits []vectorstore.Hit
	for _, point := range f.points[collection] {
		if userID, ok := filter["user_id"]; ok && point.UserID != userID {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			ID:      point.ID,
			Score:   cosine(vector, point.Vector),
			UserID:  point.UserID,
			Payload: point.Payload,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeIndex) Delete(_ context.Context, collection string, ids []string) error {
	if f.failDelete {
		return errors.New("index down")
	}
	for _, id := range ids {
		delete(f.points[collection], id)
	}
	return nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// fakeEmbedder maps known texts to fixed vectors and fails on demand.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service down")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func newTestService(records *fakeStore, index *fakeIndex, embedder *fakeEmbedder) *MemoryService {
	return NewMemoryService(records, index, embedder, testCollection, 3, logger.New("test", "", ""))
}

func TestAddMemoryIndexesRecord(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{"likes jazz": {0, 1, 0}}}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "likes jazz", "", "user-1")
	if err != nil {
		t.Fatalf("AddMemory returned error: %v", err)
	}
	if record.ID == "" {
		t.Fatal("expected generated record id")
	}
	if record.Type != "general" {
		t.Errorf("expected default type general, got %q", record.Type)
	}
	if record.VectorID == nil || *record.VectorID != record.ID {
		t.Errorf("expected vectorID to equal record id, got %v", record.VectorID)
	}

	point, ok := index.points[testCollection][record.ID]
	if !ok {
		t.Fatal("expected vector point keyed by record id")
	}
	if point.UserID != "user-1" {
		t.Errorf("expected point user user-1, got %q", point.UserID)
	}
	if point.Payload["content"] != "likes jazz" {
		t.Errorf("unexpected point payload: %v", point.Payload)
	}
}

func TestAddMemoryEmbedFailureLeavesUnindexedRecord(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{fail: true}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "likes jazz", "general", "user-1")
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if record == nil {
		t.Fatal("expected the persisted record back")
	}
	if record.VectorID != nil {
		t.Errorf("expected vectorID unset, got %v", *record.VectorID)
	}
	if stored := records.records[record.ID]; stored == nil {
		t.Fatal("expected relational row to survive the embedding failure")
	}
	if len(index.points[testCollection]) != 0 {
		t.Error("expected no vector point after embedding failure")
	}
}

func TestAddMemoryUpsertFailureLeavesUnindexedRecord(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	index.failUpsert = true
	embedder := &fakeEmbedder{}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "likes jazz", "general", "user-1")
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if record.VectorID != nil {
		t.Error("expected vectorID unset after upsert failure")
	}
	if records.records[record.ID] == nil {
		t.Fatal("expected relational row to survive the upsert failure")
	}
}

func TestSimilaritySearchPreservesIndexRanking(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"plays piano":  {0, 1, 0},
		"owns a piano": {0.1, 0.9, 0},
		"likes hiking": {1, 0, 0},
		"piano":        {0, 1, 0},
	}}
	svc := newTestService(records, index, embedder)

	for _, content := range []string{"likes hiking", "owns a piano", "plays piano"} {
		if _, err := svc.AddMemory(context.Background(), content, "general", "user-1"); err != nil {
			t.Fatalf("AddMemory(%q): %v", content, err)
		}
	}

	results, err := svc.SimilaritySearch(context.Background(), "piano", 2)
	if err != nil {
		t.Fatalf("SimilaritySearch returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "plays piano" {
		t.Errorf("expected top match %q, got %q", "plays piano", results[0].Content)
	}
	if results[1].Content != "owns a piano" {
		t.Errorf("expected second match %q, got %q", "owns a piano", results[1].Content)
	}
}

func TestSimilaritySearchDropsTombstonedIDs(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"plays piano": {0, 1, 0},
		"piano":       {0, 1, 0},
	}}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "plays piano", "general", "user-1")
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}
	// Simulate a row deleted while its vector point lingers.
	delete(records.records, record.ID)

	results, err := svc.SimilaritySearch(context.Background(), "piano", 5)
	if err != nil {
		t.Fatalf("SimilaritySearch returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected tombstoned id to be dropped, got %d results", len(results))
	}
}

func TestSimilaritySearchDegradesOnEmbedFailure(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{fail: true}
	svc := newTestService(records, index, embedder)

	results, err := svc.SimilaritySearch(context.Background(), "piano", 5)
	if err != nil {
		t.Fatalf("expected degraded empty result, got error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestUpdateMemoryMissingRecordIsNoop(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeIndex(), &fakeEmbedder{})

	record, err := svc.UpdateMemory(context.Background(), "missing", "new content", "")
	if err != nil {
		t.Fatalf("expected nil error for missing record, got %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestUpdateMemoryEmbedFailureMutatesNothing(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{"old": {0, 1, 0}}}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "old", "general", "user-1")
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	embedder.fail = true
	if _, err := svc.UpdateMemory(context.Background(), record.ID, "new", ""); err == nil {
		t.Fatal("expected error when embedding fails before update")
	}
	if records.records[record.ID].Content != "old" {
		t.Errorf("expected row untouched, got content %q", records.records[record.ID].Content)
	}
	point := index.points[testCollection][record.ID]
	if point.Payload["content"] != "old" {
		t.Errorf("expected vector point untouched, got payload %v", point.Payload)
	}
}

func TestUpdateMemoryRefreshesRowAndPoint(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"old": {0, 1, 0},
		"new": {0, 0, 1},
	}}
	svc := newTestService(records, index, embedder)

	record, err := svc.AddMemory(context.Background(), "old", "general", "user-1")
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	updated, err := svc.UpdateMemory(context.Background(), record.ID, "new", "preference")
	if err != nil {
		t.Fatalf("UpdateMemory: %v", err)
	}
	if updated.Content != "new" || updated.Type != "preference" {
		t.Errorf("unexpected updated record: %+v", updated)
	}
	point := index.points[testCollection][record.ID]
	if point.Payload["content"] != "new" {
		t.Errorf("expected refreshed point payload, got %v", point.Payload)
	}
	if cosine(point.Vector, []float32{0, 0, 1}) < 0.999 {
		t.Errorf("expected refreshed vector, got %v", point.Vector)
	}
}

func TestDeleteMemoryRemovesRowAndPoint(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	svc := newTestService(records, index, &fakeEmbedder{})

	record, err := svc.AddMemory(context.Background(), "likes jazz", "general", "user-1")
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	deleted, err := svc.DeleteMemory(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted=true")
	}
	if records.records[record.ID] != nil {
		t.Error("expected row removed")
	}
	if _, ok := index.points[testCollection][record.ID]; ok {
		t.Error("expected vector point removed")
	}
}

func TestDeleteMemoryAbsentRecord(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeIndex(), &fakeEmbedder{})

	deleted, err := svc.DeleteMemory(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error for absent record, got %v", err)
	}
	if deleted {
		t.Fatal("expected deleted=false for absent record")
	}
}

func TestReindexRebuildsFromRelationalRows(t *testing.T) {
	records := newFakeStore()
	index := newFakeIndex()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"likes jazz":  {0, 1, 0},
		"plays chess": {1, 0, 0},
	}}
	svc := newTestService(records, index, embedder)

	for _, content := range []string{"likes jazz", "plays chess"} {
		if _, err := svc.AddMemory(context.Background(), content, "general", "user-1"); err != nil {
			t.Fatalf("AddMemory(%q): %v", content, err)
		}
	}
	// Wipe the derived store; rows remain authoritative.
	index.points[testCollection] = map[string]vectorstore.Point{}

	count, err := svc.Reindex(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records reindexed, got %d", count)
	}
	if len(index.points[testCollection]) != 2 {
		t.Fatalf("expected 2 points after reindex, got %d", len(index.points[testCollection]))
	}
}
