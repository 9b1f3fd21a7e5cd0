// Package enrich composes the metadata parser, session classifier and tag
// extractor into a single deterministic record enrichment step.
package enrich

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/session-indexer/internal/classify"
	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/tagging"
	"github.com/jonathan/session-indexer/internal/types"
)

// MalformedRecordError reports a raw record that cannot be enriched.
type MalformedRecordError struct {
	ExternalID string
	Field      string
	Message    string
	Cause      error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record %q", e.ExternalID)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

// Enricher turns raw records into fully enriched session records.
type Enricher struct {
	parser     *parsing.Parser
	classifier *classify.Classifier
	extractor  *tagging.Extractor
	validate   *validator.Validate
}

// New builds an Enricher from its three collaborators.
func New(parser *parsing.Parser, classifier *classify.Classifier, extractor *tagging.Extractor) *Enricher {
	return &Enricher{
		parser:     parser,
		classifier: classifier,
		extractor:  extractor,
		validate:   validator.New(),
	}
}

// NewDefault builds an Enricher over the built-in vocabulary, rule table and dictionaries.
func NewDefault() *Enricher {
	return New(
		parsing.NewParser(parsing.DefaultVocabulary()),
		classify.MustNew(classify.DefaultRules()),
		tagging.NewExtractor(tagging.DefaultDictionaries()),
	)
}

// Classifier exposes the classifier for callers that need type metadata.
func (e *Enricher) Classifier() *classify.Classifier {
	return e.classifier
}

// Extractor exposes the tag extractor for callers that need category mappings.
func (e *Enricher) Extractor() *tagging.Extractor {
	return e.extractor
}

// ClassifyAndEnrich parses, classifies and tags a single raw record. The output is
// a pure function of the input: identical raw records always yield identical results.
func (e *Enricher) ClassifyAndEnrich(raw types.RawRecord) (types.SessionRecord, error) {
	if err := e.check(&raw); err != nil {
		return types.SessionRecord{}, err
	}

	parsed := e.parser.Parse(parsing.Input{
		Filename:   raw.Filename,
		FolderPath: raw.FolderPath,
		Title:      raw.Title,
	})

	rec := types.SessionRecord{
		RawRecord: raw,
		Participants: types.Participants{
			Coach:   parsed.Coach,
			Student: parsed.Student,
		},
		SessionWeek:     parsed.Week,
		SessionDate:     parsed.Date,
		DataSourceTag:   parsed.DataSourceTag,
		Confidence:      parsed.Confidence,
		PositionalGuess: parsed.PositionalGuess,
	}

	surfaces := append([]string{raw.Filename, raw.Title, raw.FolderPath}, raw.SourceTags...)
	rec.IsCriticalArtifact = e.parser.IsCriticalArtifact(surfaces...)

	text := raw.Text()
	classified := e.classifier.Classify(classify.Input{
		Text:        strings.Join([]string{raw.Filename, raw.Title, raw.Description, raw.FolderPath}, " "),
		SessionWeek: parsed.Week,
		TypeHint:    raw.TypeHint,
		Generic:     parsed.Coach != nil || parsed.Student != nil || parsed.Week != nil,
	})
	rec.SessionType = classified.Type
	rec.Priority = classified.Priority
	rec.RequiredForOnboarding = classified.Required

	tags := e.extractor.Extract(tagging.Input{
		Text:        text,
		Coach:       rec.Coach(),
		Student:     rec.Student(),
		SessionType: rec.SessionType,
		Week:        rec.SessionWeek,
	})
	rec.Topics = tags.Topics
	rec.Tags = tags.Tags
	rec.StudentProfile = tags.StudentProfile

	return rec, nil
}

// Reenrich recomputes the enriched fields of an existing record from its raw surfaces.
func (e *Enricher) Reenrich(existing types.SessionRecord) (types.SessionRecord, error) {
	rec, err := e.ClassifyAndEnrich(existing.RawRecord)
	if err != nil {
		return types.SessionRecord{}, err
	}
	rec.IndexedAt = existing.IndexedAt
	return rec, nil
}

func (e *Enricher) check(raw *types.RawRecord) error {
	if err := e.validate.Struct(raw); err != nil {
		return &MalformedRecordError{
			ExternalID: raw.ExternalID,
			Message:    "failed validation",
			Cause:      err,
		}
	}

	fields := map[string]string{
		"raw_filename": raw.Filename,
		"folder_path":  raw.FolderPath,
		"title":        raw.Title,
		"description":  raw.Description,
		"type_hint":    raw.TypeHint,
	}
	for _, name := range []string{"raw_filename", "folder_path", "title", "description", "type_hint"} {
		if !utf8.ValidString(fields[name]) {
			return &MalformedRecordError{
				ExternalID: raw.ExternalID,
				Field:      name,
				Message:    "invalid UTF-8",
			}
		}
	}
	for i, tag := range raw.SourceTags {
		if !utf8.ValidString(tag) {
			return &MalformedRecordError{
				ExternalID: raw.ExternalID,
				Field:      fmt.Sprintf("source_tags[%d]", i),
				Message:    "invalid UTF-8",
			}
		}
	}
	return nil
}
