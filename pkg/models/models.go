package models

import "time"

// Contract represents one logical data series source. Each workbook sheet
// maps to one contract by name; ID is the surrogate key assigned by the store.
type Contract struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SourceFile is one entry in the ingested-file ledger. Digest is the
// hex-encoded SHA-256 of the raw file bytes and is unique across the ledger.
type SourceFile struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Digest     string    `json:"digest"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SeriesPoint is one half-hour observation within a single day.
type SeriesPoint struct {
	Slot string  `json:"slot"` // "HH:MM:SS" boundary, e.g. "00:30:00"
	KWh  float64 `json:"kwh"`
}

// Summary holds store-wide record counts for diagnostic display.
type Summary struct {
	SourceFiles int64 `json:"source_files"`
	Contracts   int64 `json:"contracts"`
	Readings    int64 `json:"readings"`
}
