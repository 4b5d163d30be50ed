package result

// Shape identifies which backend response layout a payload follows.
// It is decided by the transport that produced the response.
type Shape string

// Response shapes.
const (
	// Hits is the search hit list: hits.hits[] with _id/_source/_score.
	Hits Shape = "hits"
	// Tabular is an array of result sets with columns and data rows.
	Tabular Shape = "tabular"
	// Admin is tabular output of administrative commands.
	Admin Shape = "admin"
)

// IsValid checks if the shape is known.
func (s Shape) IsValid() bool {
	return s == Hits || s == Tabular || s == Admin
}

// FacetBucket is one distinct value of a faceted field.
type FacetBucket struct {
	Key   any `json:"key"`
	Count int `json:"count"`
}

// Record is one normalized row.
type Record = map[string]any

// Normalized is the uniform result of every read operation.
type Normalized struct {
	Records []Record                 `json:"records"`
	Total   int                      `json:"total"`
	Facets  map[string][]FacetBucket `json:"facets,omitempty"`
}

// Empty returns a result with no records.
func Empty() Normalized {
	return Normalized{Records: []Record{}}
}

// Mutation is the outcome of an insert, update or delete.
type Mutation struct {
	Table    string `json:"table,omitempty"`
	ID       any    `json:"id,omitempty"`
	Result   string `json:"result"`
	Created  bool   `json:"created,omitempty"`
	Affected int    `json:"affected"`
}
