package model

import "time"

type MergedBy string

const (
	MergedBySystem MergedBy = "system"
	MergedByUser   MergedBy = "user"
)

// Merge records that Absorbed was folded into Canonical. Merges are
// append-only: created once by the merge recorder, never mutated or deleted.
type Merge struct {
	UUID       string    `json:"uuid"`
	Absorbed   string    `json:"absorbed"`
	Canonical  string    `json:"canonical"`
	Comparison string    `json:"comparison"`
	MergedAt   time.Time `json:"merged_at"`
	MergedBy   MergedBy  `json:"merged_by"`
}

// Connection is one imported record from the import pipeline, the raw
// material the canonicalization sync dedups at ingestion time.
type Connection struct {
	UUID       string   `json:"uuid"`
	Account    string   `json:"account"`
	ProfileURL string   `json:"profile_url,omitempty"`
	Attributes Snapshot `json:"attributes,omitempty"`
}
