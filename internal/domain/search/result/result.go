package result

import "time"

// Result is a single search hit rendered as a result card.
type Result struct {
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Summary      string    `json:"summary"`
}
