package entity

import "time"

// Document is a single transcription/summary record. The remote service is
// the system of record; the client only ever holds server-returned copies.
type Document struct {
	Id            string    `json:"_id"`
	Title         string    `json:"title"`
	Transcription string    `json:"transcription"`
	Summary       string    `json:"summary"`
	EditedSummary *string   `json:"editedSummary,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EffectiveContent returns the content actually shown and exported: the
// user-edited summary when present, otherwise the generated one. Derived on
// every call so the two copies cannot drift.
func (d *Document) EffectiveContent() string {
	if d.EditedSummary != nil {
		return *d.EditedSummary
	}
	return d.Summary
}
