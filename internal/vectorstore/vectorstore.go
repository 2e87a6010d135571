package vectorstore

import "context"

// Point is a derived, rebuildable entry of the vector index. It shares its ID
// with the owning relational row and never holds canonical content: the
// payload is a denormalized snapshot refreshed on every successful write.
type Point struct {
	ID      string
	Vector  []float32
	UserID  string
	Payload map[string]interface{}
}

// Hit is one ranked result of a similarity search.
type Hit struct {
	ID      string
	Score   float32
	UserID  string
	Payload map[string]interface{}
}

// Filter restricts a search to points whose indexed fields match exactly.
// The only filterable field today is "user_id".
type Filter map[string]string

// Index is the single narrow interface the coordinators depend on.
// Exactly one backend implementation is selected by configuration;
// coordinator logic never branches on backend identity.
type Index interface {
	// EnsureCollection creates the named collection with the given vector
	// dimension if it does not exist. Idempotent and safe to call
	// concurrently and redundantly.
	EnsureCollection(ctx context.Context, collection string, dim int) error

	// Upsert inserts or replaces the point keyed by point.ID.
	Upsert(ctx context.Context, collection string, point Point) error

	// Search returns up to topK hits ranked by cosine similarity,
	// restricted by the optional filter.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]Hit, error)

	// Delete removes the points with the given ids. Deleting an absent id
	// is not an error.
	Delete(ctx context.Context, collection string, ids []string) error
}
