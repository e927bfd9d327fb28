package models

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
// Transitions are forward-only: uploaded -> processing -> ready | failed.
// Re-ingestion is the only way back to processing.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether the status can be polled no further.
func (s DocumentStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// ContentMetadata carries structural hints from extraction. Advisory only,
// never required for correctness.
type ContentMetadata struct {
	PageCount         int      `json:"page_count,omitempty"`
	ParagraphCount    int      `json:"paragraph_count,omitempty"`
	SlideCount        int      `json:"slide_count,omitempty"`
	SheetNames        []string `json:"sheet_names,omitempty"`
	Sender            string   `json:"sender,omitempty"`
	Recipient         string   `json:"recipient,omitempty"`
	Subject           string   `json:"subject,omitempty"`
	AttachmentCount   int      `json:"attachment_count,omitempty"`
	PagesNeedingOCR   []int    `json:"pages_needing_ocr,omitempty"`
	OCRUnavailable    bool     `json:"ocr_unavailable,omitempty"`
	HadDecodingErrors bool     `json:"had_decoding_errors,omitempty"`

	// EmptyContent marks a document that extracted successfully but yielded
	// no text, as opposed to one that has not been processed yet.
	EmptyContent bool `json:"empty_content,omitempty"`
}

// Document is one ingested unit.
type Document struct {
	DocumentID  string          `json:"document_id"`
	FileName    string          `json:"file_name"`
	MIMEType    string          `json:"mime_type"`
	FilePath    string          `json:"-"`
	Status      DocumentStatus  `json:"status"`
	Content     string          `json:"content,omitempty"`
	Analysis    string          `json:"analysis,omitempty"`
	Metadata    ContentMetadata `json:"metadata"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DocumentInfo is the listing view: metadata only, content excluded to bound
// response size.
type DocumentInfo struct {
	DocumentID string         `json:"document_id"`
	FileName   string         `json:"file_name"`
	MIMEType   string         `json:"mime_type"`
	Status     DocumentStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
