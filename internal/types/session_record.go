// Package types provides type definitions for structured data used throughout the session-indexer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"slices"
	"strings"
	"time"
)

// SessionType is the single classification label assigned to a session record.
type SessionType string

// Closed set of session types.
const (
	SessionTypeGamePlan     SessionType = "GAME_PLAN"
	SessionTypeHour168      SessionType = "HOUR_168"
	SessionTypeExecution    SessionType = "EXECUTION"
	SessionTypeParent       SessionType = "PARENT_SESSION"
	SessionTypeMilestone    SessionType = "MILESTONE"
	SessionTypeRegular      SessionType = "REGULAR"
	SessionTypeUnclassified SessionType = "UNCLASSIFIED"
)

// AllSessionTypes lists every session type in classification table order.
var AllSessionTypes = []SessionType{
	SessionTypeGamePlan,
	SessionTypeHour168,
	SessionTypeExecution,
	SessionTypeParent,
	SessionTypeMilestone,
	SessionTypeRegular,
	SessionTypeUnclassified,
}

// ParseSessionType maps a free-form label ("game plan", "hour_168") to a SessionType.
// The second return value is false when the label names no known type.
func ParseSessionType(label string) (SessionType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	candidate := SessionType(normalized)
	if slices.Contains(AllSessionTypes, candidate) {
		return candidate, true
	}
	return SessionTypeUnclassified, false
}

// Confidence reflects the strongest evidence source used while parsing a record.
type Confidence string

// Confidence levels, weakest first.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank returns an ordinal for comparing confidence levels (low=1, medium=2, high=3).
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Max returns the stronger of two confidence levels.
func (c Confidence) Max(other Confidence) Confidence {
	if other.Rank() > c.Rank() {
		return other
	}
	return c
}

// RawRecord is an unenriched session artifact as supplied by the archive or an import.
type RawRecord struct {
	ExternalID  string     `json:"external_id" validate:"required,max=256"`
	Filename    string     `json:"raw_filename,omitempty" validate:"max=1024"`
	FolderPath  string     `json:"folder_path,omitempty" validate:"max=2048"`
	Title       string     `json:"title,omitempty" validate:"max=1024"`
	Description string     `json:"description,omitempty" validate:"max=8192"`
	TypeHint    string     `json:"type_hint,omitempty" validate:"max=64"`
	SourceTags  []string   `json:"source_tags,omitempty" validate:"max=64,dive,max=128"`
	MediaType   string     `json:"media_type,omitempty"`
	SizeBytes   int64      `json:"size_bytes,omitempty" validate:"gte=0"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
}

// Participants holds the extracted coach and student names.
type Participants struct {
	Coach   *string `json:"coach"`
	Student *string `json:"student"`
}

// StudentProfile captures demographic markers derived from text surfaces.
type StudentProfile struct {
	Grade   string `json:"grade"`
	Track   string `json:"track"`
	Profile string `json:"profile"`
}

// SessionRecord is one coaching-session artifact with raw and enriched metadata.
// Nullable facts are pointers so every consumer must handle absence.
type SessionRecord struct {
	RawRecord

	Participants  Participants `json:"participants"`
	SessionWeek   *int         `json:"session_week"`
	SessionDate   *time.Time   `json:"session_date"`
	DataSourceTag *string      `json:"data_source_tag"`

	SessionType           SessionType `json:"session_type"`
	Priority              int         `json:"priority"`
	RequiredForOnboarding bool        `json:"required_for_onboarding"`
	IsCriticalArtifact    bool        `json:"is_critical_artifact"`

	Topics         []string       `json:"topics"`
	Tags           []string       `json:"tags"`
	StudentProfile StudentProfile `json:"student_profile"`

	Confidence      Confidence `json:"confidence"`
	PositionalGuess bool       `json:"positional_guess"`

	IndexedAt *time.Time `json:"indexed_at,omitempty"`
}

// Coach returns the coach name or "" when absent.
func (r *SessionRecord) Coach() string {
	return deref(r.Participants.Coach)
}

// Student returns the student name or "" when absent.
func (r *SessionRecord) Student() string {
	return deref(r.Participants.Student)
}

// Text concatenates every textual surface of the record, space separated.
func (r *SessionRecord) Text() string {
	return r.RawRecord.Text()
}

// Text concatenates every textual surface of the raw record, space separated.
func (r *RawRecord) Text() string {
	parts := []string{r.Filename, r.Title, r.Description, r.FolderPath, r.TypeHint}
	parts = append(parts, r.SourceTags...)
	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// SameEnrichment reports whether two records carry identical enriched fields.
// Raw surfaces and IndexedAt are ignored.
func (r *SessionRecord) SameEnrichment(other *SessionRecord) bool {
	if other == nil {
		return false
	}
	return equalStringPtr(r.Participants.Coach, other.Participants.Coach) &&
		equalStringPtr(r.Participants.Student, other.Participants.Student) &&
		equalIntPtr(r.SessionWeek, other.SessionWeek) &&
		equalTimePtr(r.SessionDate, other.SessionDate) &&
		equalStringPtr(r.DataSourceTag, other.DataSourceTag) &&
		r.SessionType == other.SessionType &&
		r.Priority == other.Priority &&
		r.RequiredForOnboarding == other.RequiredForOnboarding &&
		r.IsCriticalArtifact == other.IsCriticalArtifact &&
		slices.Equal(r.Topics, other.Topics) &&
		slices.Equal(r.Tags, other.Tags) &&
		r.StudentProfile == other.StudentProfile &&
		r.Confidence == other.Confidence &&
		r.PositionalGuess == other.PositionalGuess
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
