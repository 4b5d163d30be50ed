package recommend

// InputType is what the reference of a recommendation is.
type InputType string

// Input types.
const (
	InputID     InputType = "id"
	InputVector InputType = "vector"
	InputText   InputType = "text"
)

// Limits of a recommendation request.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// maxEchoedDims caps the size of a reference vector echoed back in the response.
const maxEchoedDims = 10

// minStoredDims is the fewest dimensions accepted from a vector stored as text.
const minStoredDims = 10

// Request asks for records similar to a reference.
type Request struct {
	Table        string         `json:"table_name"`
	InputType    InputType      `json:"input_type"`
	InputValue   any            `json:"input_value"`
	VectorColumn string         `json:"vector_column,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	ExcludeSelf  *bool          `json:"exclude_self,omitempty"`
	Threshold    *float64       `json:"similarity_threshold,omitempty"`
	Filters      map[string]any `json:"filters,omitempty"`
}

// Item is one recommended record.
type Item struct {
	ID       any            `json:"id"`
	Score    float64        `json:"score"`
	Distance float64        `json:"distance"`
	Data     map[string]any `json:"data"`
}

// Response lists recommendations and how they were obtained.
type Response struct {
	ReferenceTable      string    `json:"reference_table"`
	ReferenceInputType  InputType `json:"reference_input_type"`
	ReferenceInputValue any       `json:"reference_input_value"`
	VectorColumnUsed    string    `json:"vector_column_used"`
	ModelName           string    `json:"model_name,omitempty"`
	Recommendations     []Item    `json:"recommendations"`
	TotalFound          int       `json:"total_found"`
	QueryTimeMS         float64   `json:"query_time_ms"`
	ReferenceVector     []float32 `json:"reference_vector,omitempty"`
	ReferenceTimeMS     float64   `json:"stage1_time_ms"`
	SearchTimeMS        float64   `json:"stage2_time_ms"`
}

// Score converts a KNN distance into a similarity in (0, 1].
func Score(distance float64) float64 {
	if distance <= 0 {
		return 1
	}
	return 1 / (1 + distance)
}
