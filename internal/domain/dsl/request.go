package dsl

// KNN is the k-nearest-neighbour clause of a search request.
// Filter narrows the candidates after the vector stage.
type KNN struct {
	Field       string    `json:"field"`
	QueryVector []float32 `json:"query_vector"`
	K           int       `json:"k"`
	EF          *int      `json:"ef,omitempty"`
	Filter      Node      `json:"filter,omitempty"`
}

// Terms groups documents by distinct field values.
type Terms struct {
	Field string `json:"field"`
	Size  int    `json:"size,omitempty"`
}

// OrderSpec is a sort direction inside an aggregation sort.
type OrderSpec struct {
	Order string `json:"order"`
}

// Aggregation is a terms aggregation with optional bucket ordering.
type Aggregation struct {
	Terms Terms                  `json:"terms"`
	Sort  []map[string]OrderSpec `json:"sort,omitempty"`
}

// CountKey orders aggregation buckets by document count.
const CountKey = "count(*)"

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Table       string                 `json:"table"`
	Query       Node                   `json:"query,omitempty"`
	KNN         *KNN                   `json:"knn,omitempty"`
	Aggs        map[string]Aggregation `json:"aggs,omitempty"`
	Sort        []map[string]string    `json:"sort,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
	Offset      int                    `json:"offset,omitempty"`
	Options     map[string]any         `json:"options,omitempty"`
	TrackScores bool                   `json:"track_scores,omitempty"`
}

// InsertRequest is the body of POST /insert.
type InsertRequest struct {
	Table string         `json:"table"`
	ID    any            `json:"id,omitempty"`
	Doc   map[string]any `json:"doc"`
}

// UpdateRequest is the body of POST /update.
type UpdateRequest struct {
	Table string         `json:"table"`
	ID    any            `json:"id"`
	Doc   map[string]any `json:"doc"`
}

// DeleteRequest is the body of POST /delete.
type DeleteRequest struct {
	Table string `json:"table"`
	ID    any    `json:"id"`
}
