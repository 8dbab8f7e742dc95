package entity

import (
	"time"

	"github.com/google/uuid"
)

// IssuedPass represents a ledger row for data transfer between layers.
type IssuedPass struct {
	ID             uuid.UUID `json:"id"`
	Serial         string    `json:"serial"`
	BarcodeMessage string    `json:"barcode_message"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	EventTime      *string   `json:"event_time,omitempty"`
	SourcePath     string    `json:"source_path"`
	SourceHash     string    `json:"source_hash"`
	ArchivePath    *string   `json:"archive_path,omitempty"`
	Status         string    `json:"status"`
	Enrichment     string    `json:"enrichment"`
	PassJSON       []byte    `json:"pass_json"`
	CreatedAt      time.Time `json:"created_at"`
}
