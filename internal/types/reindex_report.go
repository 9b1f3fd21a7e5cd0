// Package types provides type definitions for structured data used throughout the session-indexer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// RecordError describes a single record that could not be processed or written.
type RecordError struct {
	ExternalID string `json:"external_id"`
	Stage      string `json:"stage"`
	Message    string `json:"message"`
}

// Reindex error stages.
const (
	StageEnrich = "enrich"
	StageCommit = "commit"
)

// ReindexReport summarizes one reindex run.
type ReindexReport struct {
	RunID           string              `json:"run_id"`
	BackupNamespace string              `json:"backup_namespace,omitempty"`
	DryRun          bool                `json:"dry_run"`
	Cancelled       bool                `json:"cancelled"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
	Batches         int                 `json:"batches"`
	Processed       int                 `json:"processed"`
	Updated         int                 `json:"updated"`
	Unchanged       int                 `json:"unchanged"`
	Errors          []RecordError       `json:"errors"`
	ByType          map[SessionType]int `json:"by_type"`
	ByCategory      map[string]int      `json:"by_category"`
}

// ErrorCount returns the number of failed records.
func (r *ReindexReport) ErrorCount() int {
	return len(r.Errors)
}
