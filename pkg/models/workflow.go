// Package models defines the shared domain models of the workflow hub.
package models

import (
	"encoding/json"
	"time"
)

// SharedWorkflow is a community-shared workflow document stored by the hub.
//
// Document holds the exact bytes that were uploaded. The hub must return
// them unmodified on download; deduplication happens on Fingerprint, never
// by rewriting content.
type SharedWorkflow struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Name        string          `json:"name"        validate:"required,min=1,max=100"`
	Author      string          `json:"author"      validate:"max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Document    json.RawMessage `json:"document,omitempty"`
	NodeCount   int             `json:"node_count"`
	Downloads   int64           `json:"downloads"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TrendingEntry is a download-ranked listing row, recomputed periodically.
type TrendingEntry struct {
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Author      string `json:"author"`
	NodeCount   int    `json:"node_count"`
	Downloads   int64  `json:"downloads"`
}
