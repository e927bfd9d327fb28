package models

// ExclusionReason says why a requested document contributed no context.
type ExclusionReason string

const (
	ExcludedNotFound   ExclusionReason = "not_found"
	ExcludedNotReady   ExclusionReason = "not_ready"
	ExcludedOverBudget ExclusionReason = "over_budget"
)

// IncludedDocument is one excerpt supplied to the LLM.
type IncludedDocument struct {
	DocumentID   string `json:"document_id"`
	FileName     string `json:"file_name"`
	Excerpt      string `json:"excerpt"`
	WasTruncated bool   `json:"was_truncated"`
}

// ExcludedDocument records a requested document that was dropped.
type ExcludedDocument struct {
	DocumentID string          `json:"document_id"`
	Reason     ExclusionReason `json:"reason"`
}

// ContextBundle is the assembled evidence for one query. It is built fresh
// per query and never persisted.
type ContextBundle struct {
	QueryText  string             `json:"query_text"`
	Included   []IncludedDocument `json:"included_documents"`
	Excluded   []ExcludedDocument `json:"excluded_documents"`
	TotalChars int                `json:"total_characters"`
}

// DocumentSource identifies a document whose content was supplied to the LLM.
type DocumentSource struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
}

// QueryResult is the answer returned by the query orchestrator.
type QueryResult struct {
	Response string             `json:"response"`
	Sources  []DocumentSource   `json:"sources"`
	Excluded []ExcludedDocument `json:"excluded_documents,omitempty"`
}

// AnalysisResult is a persisted analysis session over a document selection.
type AnalysisResult struct {
	AnalysisID string           `json:"analysis_id"`
	Summary    string           `json:"summary"`
	Context    string           `json:"context,omitempty"`
	Documents  []DocumentSource `json:"documents"`
	CreatedAt  string           `json:"created_at"`
}
