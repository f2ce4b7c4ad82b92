package model

// FactType distinguishes numeric facts from categorical ones.
type FactType string

const (
	FactTypeQuantity    FactType = "quantity"
	FactTypeCategorical FactType = "categorical"
)

// FactOccurrence is one mention of a fact in one chunk, as returned by the
// extraction stage. Raw value and unit are the literal strings from the
// document; normalized fields are filled in by the consolidator.
type FactOccurrence struct {
	Name            string   `json:"name"`
	Type            FactType `json:"type"`
	RawValue        string   `json:"raw_value"`
	RawUnit         string   `json:"raw_unit,omitempty"`
	NormalizedValue *float64 `json:"normalized_value,omitempty"`
	NormalizedUnit  string   `json:"normalized_unit,omitempty"`
	Page            int      `json:"page"`
	ChunkID         string   `json:"chunk_id"`
	Evidence        string   `json:"evidence,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// EvidenceRef is a reviewer-facing pointer back into the source document.
type EvidenceRef struct {
	Text    string `json:"text"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id,omitempty"`
}

// ConsolidatedFact is the merged view of all occurrences sharing a signature.
type ConsolidatedFact struct {
	Signature     string           `json:"signature"`
	CanonicalName string           `json:"canonical_name"`
	Type          FactType         `json:"type"`
	Occurrences   []FactOccurrence `json:"occurrences"`

	// Quantity facts only.
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`

	// Categorical facts only.
	ValueText string `json:"value_text,omitempty"`

	Conflict       bool   `json:"conflict"`
	ConflictReason string `json:"conflict_reason,omitempty"`

	Category    string        `json:"category,omitempty"`
	Subcategory string        `json:"subcategory,omitempty"`
	Evidence    []EvidenceRef `json:"evidence,omitempty"`
	Pages       []int         `json:"pages,omitempty"`
}

// ConsolidationResult is the full output of a merge pass.
type ConsolidationResult struct {
	Facts     []ConsolidatedFact `json:"facts"`
	Skipped   int                `json:"skipped"`
	Conflicts int                `json:"conflicts"`
}
