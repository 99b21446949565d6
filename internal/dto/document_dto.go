package dto

// Requests for the /summary and /audio endpoints. Responses decode straight
// into entity.Document; the list endpoint returns a bare array.

// UpdateDocumentRequest is a partial update. Nil fields are omitted from the
// body and left untouched by the server.
type UpdateDocumentRequest struct {
	Title         *string `json:"title,omitempty"`
	EditedSummary *string `json:"editedSummary,omitempty"`
}
