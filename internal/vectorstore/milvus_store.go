package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"Jarvis_Memory/internal/database/milvus"
	"Jarvis_Memory/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// Schema fields shared by every collection this subsystem owns.
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldUserID    = "user_id"
	FieldPayload   = "payload"

	maxIDLength = 64
)

// MilvusIndex is the Milvus-backed implementation of the Index interface.
// Every collection uses the same schema: a VarChar primary key shared with
// the owning relational row, a cosine-indexed float vector, a filterable
// user_id column and a JSON payload column.
type MilvusIndex struct {
	log    *logger.Logger
	client client.Client

	mu      sync.Mutex
	ensured map[string]bool
}

// NewMilvusIndex creates a new MilvusIndex adapter on top of the project's
// Milvus connection handle.
func NewMilvusIndex(milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusIndex, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusIndex{
		log:     log,
		client:  milvusClient.Client,
		ensured: make(map[string]bool),
	}, nil
}

// EnsureCollection creates and loads the collection if needed. The
// check-then-create race with a concurrent caller is resolved by re-checking
// existence after a failed create.
func (s *MilvusIndex) EnsureCollection(ctx context.Context, collection string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured[collection] {
		return nil
	}

	exists, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collection).
			WithDescription("derived similarity index, rebuildable from MySQL").
			WithField(entity.NewField().WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))).
			WithField(entity.NewField().WithName(FieldUserID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength)).
			WithField(entity.NewField().WithName(FieldPayload).
				WithDataType(entity.FieldTypeJSON))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			// 并发的 EnsureCollection 可能已经抢先创建；重新检查一次。
			recheck, recheckErr := s.client.HasCollection(ctx, collection)
			if recheckErr != nil || !recheck {
				return fmt.Errorf("创建集合 '%s' 失败: %w", collection, err)
			}
		} else {
			idx, err := entity.NewIndexAUTOINDEX(entity.COSINE)
			if err != nil {
				return fmt.Errorf("构建索引失败: %w", err)
			}
			if err := s.client.CreateIndex(ctx, collection, FieldEmbedding, idx, false); err != nil {
				return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
			}
		}
	}

	if err := s.client.LoadCollection(ctx, collection, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collection, err)
	}

	s.ensured[collection] = true
	return nil
}

// Upsert inserts or replaces a single point keyed by point.ID.
func (s *MilvusIndex) Upsert(ctx context.Context, collection string, point Point) error {
	payloadBytes, err := json.Marshal(point.Payload)
	if err != nil {
		return fmt.Errorf("序列化 payload 失败: %w", err)
	}

	idCol := entity.NewColumnVarChar(FieldID, []string{point.ID})
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, len(point.Vector), [][]float32{point.Vector})
	userIDCol := entity.NewColumnVarChar(FieldUserID, []string{point.UserID})
	payloadCol := entity.NewColumnJSONBytes(FieldPayload, [][]byte{payloadBytes})

	if _, err := s.client.Upsert(ctx, collection, "" /* default partition */, idCol, embeddingCol, userIDCol, payloadCol); err != nil {
		return fmt.Errorf("failed to upsert point into Milvus: %w", err)
	}
	return nil
}

// Search runs a cosine kNN query with an optional exact-match filter.
func (s *MilvusIndex) Search(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]Hit, error) {
	filterExpr := buildFilterExpression(filter)

	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("构建搜索参数失败: %w", err)
	}
	outputFields := []string{FieldUserID, FieldPayload}

	searchResults, err := s.client.Search(
		ctx, collection, []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var hits []Hit
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		var userIDData []string
		if userIDCol, ok := findColumn(FieldUserID).(*entity.ColumnVarChar); ok {
			userIDData = userIDCol.Data()
		}
		var payloadData [][]byte
		if payloadCol, ok := findColumn(FieldPayload).(*entity.ColumnJSONBytes); ok {
			payloadData = payloadCol.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			id, err := res.IDs.GetAsString(i)
			if err != nil {
				s.log.Warn("Search result is missing ID field, skipping.")
				continue
			}
			hit := Hit{ID: id, Score: res.Scores[i]}
			if i < len(userIDData) {
				hit.UserID = userIDData[i]
			}
			if i < len(payloadData) {
				var payload map[string]interface{}
				if err := json.Unmarshal(payloadData[i], &payload); err == nil {
					hit.Payload = payload
				}
			}
			hits = append(hits, hit)
		}
	}

	// Milvus 的 COSINE 分数越大越相似；保证排名稳定。
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	return hits, nil
}

// Delete removes the given ids. Absent ids are ignored by Milvus, which makes
// delete idempotent as the dual-write recovery model requires.
func (s *MilvusIndex) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("%s in [%s]", FieldID, strings.Join(quoted, ", "))

	if err := s.client.Delete(ctx, collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete points from Milvus: %w", err)
	}
	return nil
}

// buildFilterExpression creates a Milvus boolean expression from a filter map.
func buildFilterExpression(filter Filter) string {
	if len(filter) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var conditions []string
	for _, key := range keys {
		conditions = append(conditions, fmt.Sprintf(`%s == %q`, key, filter[key]))
	}
	return strings.Join(conditions, " and ")
}

// compile-time check to ensure MilvusIndex implements the Index interface
var _ Index = (*MilvusIndex)(nil)
