package recommend

import (
	"context"
	"fmt"

	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/ranking"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

// InvalidProfileError reports a profile whose fields are out of bounds. A profile
// with no fields set is valid.
type InvalidProfileError struct {
	Message string
	Cause   error
}

func (e *InvalidProfileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid profile: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid profile: %s", e.Message)
}

func (e *InvalidProfileError) Unwrap() error {
	return e.Cause
}

// InvalidQueryError reports a lookup argument that cannot identify anything.
type InvalidQueryError struct {
	Field   string
	Message string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Message)
}

// Service answers recommendation and critical-session queries from a record store.
// It holds no per-request state.
type Service struct {
	store    store.RecordStore
	scorer   *ranking.Scorer
	cfg      Config
	required []types.SessionType
}

// NewService builds a Service. required lists the types flagged required for onboarding.
func NewService(s store.RecordStore, scorer *ranking.Scorer, cfg Config, required []types.SessionType) *Service {
	return &Service{
		store:    s,
		scorer:   scorer,
		cfg:      cfg,
		required: required,
	}
}

// Recommend scores every record matching q against the profile and buckets the result.
func (s *Service) Recommend(ctx context.Context, profile *types.Profile, q store.Query) (*types.RecommendationSet, error) {
	if profile == nil {
		profile = &types.Profile{}
	}
	if err := profile.Validate(); err != nil {
		return nil, &InvalidProfileError{Message: "field validation failed", Cause: err}
	}

	// Ranking and caps are applied after scoring, never by the store.
	q.Limit = 0
	records, err := s.store.ListRecords(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate records: %w", err)
	}

	set := Aggregate(s.cfg, profile, s.scorer.ScoreAll(profile, records))
	return &set, nil
}

// FindCriticalSessionsForStudent groups a student's sessions by onboarding type, newest first.
func (s *Service) FindCriticalSessionsForStudent(ctx context.Context, student string) (*types.CriticalSessions, error) {
	name := parsing.NormalizeName(student)
	if name == "" {
		return nil, &InvalidQueryError{Field: "student", Message: "is required"}
	}

	records, err := s.store.ListRecords(ctx, store.Query{Student: name, OrderBy: store.OrderBySessionDate})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for %s: %w", name, err)
	}

	out := &types.CriticalSessions{
		Student:           name,
		GamePlan:          make([]types.SessionRecord, 0),
		Hour168:           make([]types.SessionRecord, 0),
		ExecutionExamples: make([]types.SessionRecord, 0),
		ParentSessions:    make([]types.SessionRecord, 0),
		Milestones:        make([]types.SessionRecord, 0),
		Stats: types.CriticalStats{
			Total:           len(records),
			ByType:          make(map[types.SessionType]int),
			MissingRequired: make([]types.SessionType, 0),
		},
	}

	for _, rec := range records {
		out.Stats.ByType[rec.SessionType]++
		switch rec.SessionType {
		case types.SessionTypeGamePlan:
			out.GamePlan = append(out.GamePlan, rec)
		case types.SessionTypeHour168:
			out.Hour168 = append(out.Hour168, rec)
		case types.SessionTypeExecution:
			if len(out.ExecutionExamples) < s.cfg.ExecutionExamples {
				out.ExecutionExamples = append(out.ExecutionExamples, rec)
			}
		case types.SessionTypeParent:
			out.ParentSessions = append(out.ParentSessions, rec)
		case types.SessionTypeMilestone:
			out.Milestones = append(out.Milestones, rec)
		}
	}

	out.Stats.HasGamePlan = len(out.GamePlan) > 0
	out.Stats.HasHour168 = len(out.Hour168) > 0
	for _, t := range s.required {
		if out.Stats.ByType[t] == 0 {
			out.Stats.MissingRequired = append(out.Stats.MissingRequired, t)
		}
	}
	return out, nil
}
