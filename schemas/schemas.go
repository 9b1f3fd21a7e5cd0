// Package schemas embeds the JSON Schemas describing every document the indexer emits.
package schemas

import (
	"embed"
	"strings"
)

// FS holds the *.schema.json files.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names.
const (
	SessionRecord     = "session_record.schema.json"
	RecommendationSet = "recommendation_set.schema.json"
	ReindexReport     = "reindex_report.schema.json"
	CriticalSessions  = "critical_sessions.schema.json"
)

// All lists every embedded schema.
var All = []string{SessionRecord, RecommendationSet, ReindexReport, CriticalSessions}

// Lookup resolves a schema by file name or short name ("reindex_report").
func Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, n := range All {
		if n == name || strings.TrimSuffix(n, ".schema.json") == name {
			return n, true
		}
	}
	return "", false
}
