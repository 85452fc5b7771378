package domain

import "time"

// SkippedDocument records a per-document ingestion failure. Skips never
// abort the run.
type SkippedDocument struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestionReport summarizes one ingestion run.
type IngestionReport struct {
	DocumentsProcessed int               `json:"documents_processed"`
	DocumentsSkipped   []SkippedDocument `json:"documents_skipped"`
	ChunksProduced     int               `json:"chunks_produced"`
	Elapsed            time.Duration     `json:"elapsed"`
}
