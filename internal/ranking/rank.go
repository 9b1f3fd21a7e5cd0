package ranking

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/tagging"
	"github.com/jonathan/session-indexer/internal/types"
)

// Config holds the tunable scoring policy.
type Config struct {
	Weights             Weights    `koanf:"weights" yaml:"weights"`
	StyleGroups         [][]string `koanf:"style_groups" yaml:"style_groups"`
	StyleCredit         float64    `koanf:"style_credit" yaml:"style_credit" validate:"gte=0,lte=1"`
	AdjacentGradeCredit float64    `koanf:"adjacent_grade_credit" yaml:"adjacent_grade_credit" validate:"gte=0,lte=1"`
	TypeBaseline        float64    `koanf:"type_baseline" yaml:"type_baseline" validate:"gte=0,lte=1"`
	RecencyHorizonYears float64    `koanf:"recency_horizon_years" yaml:"recency_horizon_years" validate:"gt=0"`
	RecentThreshold     float64    `koanf:"recent_threshold" yaml:"recent_threshold" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the production scoring policy.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		StyleGroups: [][]string{
			{"Jenny", "Priya"},
			{"Kelvin", "Marcus", "Daniel"},
			{"Sofia", "Noor"},
		},
		StyleCredit:         defaultStyleCredit,
		AdjacentGradeCredit: defaultAdjacentGradeCredit,
		TypeBaseline:        defaultTypeBaseline,
		RecencyHorizonYears: defaultRecencyHorizonYears,
		RecentThreshold:     0.8,
	}
}

// Scorer computes relevance scores. It is safe for concurrent use.
type Scorer struct {
	cfg       Config
	extractor *tagging.Extractor
	styles    map[string]int
	now       func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer builds a scorer. The extractor supplies the category mapping shared with tagging.
func NewScorer(cfg Config, extractor *tagging.Extractor, opts ...Option) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}

	s := &Scorer{
		cfg:       cfg,
		extractor: extractor,
		styles:    make(map[string]int),
		now:       time.Now,
	}
	for i, group := range cfg.StyleGroups {
		for _, name := range group {
			s.styles[strings.ToLower(parsing.NormalizeName(name))] = i
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Weights returns the active weights.
func (s *Scorer) Weights() Weights {
	return s.cfg.Weights
}

// ScoreCandidate scores one record against a profile. An empty profile never fails;
// its sub-scores fall back to their neutral defaults.
func (s *Scorer) ScoreCandidate(profile *types.Profile, record *types.SessionRecord) types.ScoredCandidate {
	if profile == nil {
		profile = &types.Profile{}
	}

	coach := computeCoachAffinity(profile.Coach, record.Coach(), s.styles, s.cfg.StyleCredit)
	similarity, best := s.studentSimilarity(profile, record)
	typeRelevance := computeTypeRelevance(record.SessionType, s.activeNeeds(profile), s.cfg.TypeBaseline)
	topicOverlap, sharedTopics := computeOverlapRatio(s.profileTopics(profile), record.Topics)
	recency := computeRecencyScore(record.SessionDate, s.now(), s.cfg.RecencyHorizonYears)

	breakdown := types.Breakdown{
		CoachAffinity:     coach,
		StudentSimilarity: similarity,
		TypeRelevance:     typeRelevance,
		TopicOverlap:      topicOverlap,
		Recency:           recency,
	}

	return types.ScoredCandidate{
		Record:    *record,
		Score:     clamp(s.cfg.Weights.Apply(breakdown)),
		Breakdown: breakdown,
		Reasons:   s.reasons(profile, record, breakdown, best, sharedTopics),
	}
}

// ScoreAll scores every record, preserving input order.
func (s *Scorer) ScoreAll(profile *types.Profile, records []types.SessionRecord) []types.ScoredCandidate {
	scored := make([]types.ScoredCandidate, 0, len(records))
	for i := range records {
		scored = append(scored, s.ScoreCandidate(profile, &records[i]))
	}
	return scored
}

// studentMatch records how the best-matching roster student compared to the record.
type studentMatch struct {
	gradeCloseness   float64
	trackMatch       bool
	sharedChallenges []string
}

// studentSimilarity takes the best blended similarity over the profile's student targets.
func (s *Scorer) studentSimilarity(profile *types.Profile, record *types.SessionRecord) (float64, studentMatch) {
	recordChallenges := s.challengeTopics(record.Topics)
	bestScore := 0.0
	var best studentMatch
	for _, target := range profile.StudentTargets() {
		var m studentMatch
		if grade, ok := s.extractor.Categorize(tagging.DictGrade, target.Grade); ok {
			m.gradeCloseness = computeGradeCloseness(grade, record.StudentProfile.Grade, s.cfg.AdjacentGradeCredit)
		}
		if track, ok := s.extractor.Categorize(tagging.DictTrack, target.Track); ok {
			m.trackMatch = track == record.StudentProfile.Track
		}
		var challengeRatio float64
		challengeRatio, m.sharedChallenges = computeOverlapRatio(s.normalizeChallenges(target.ChallengeTags), recordChallenges)

		score := gradeComponentWeight*m.gradeCloseness + challengeComponentWeight*challengeRatio
		if m.trackMatch {
			score += trackComponentWeight
		}
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return clamp(bestScore), best
}

func (s *Scorer) activeNeeds(profile *types.Profile) []Need {
	var needs []Need
	if profile.IsInTraining() {
		needs = append(needs, defaultTrainingNeed)
	}
	if profile.IsStruggling() {
		needs = append(needs, defaultStrugglingNeed)
	}
	return needs
}

// profileTopics maps declared interest and challenge tags onto category labels.
// Tags that match no dictionary are kept as slugs.
func (s *Scorer) profileTopics(profile *types.Profile) []string {
	raw := append([]string{}, profile.InterestTags...)
	raw = append(raw, profile.ChallengeTags...)

	topics := make([]string, 0, len(raw))
	for _, tag := range raw {
		if label, ok := s.categorizeAny(tag); ok {
			topics = append(topics, label)
		} else if slug := parsing.Slugify(tag); slug != "" {
			topics = append(topics, slug)
		}
	}
	return topics
}

func (s *Scorer) categorizeAny(tag string) (string, bool) {
	for _, dict := range []string{tagging.DictChallenge, tagging.DictTrack, tagging.DictProfile, tagging.DictGrade} {
		if label, ok := s.extractor.Categorize(dict, tag); ok {
			return label, true
		}
	}
	return "", false
}

func (s *Scorer) normalizeChallenges(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if label, ok := s.extractor.Categorize(tagging.DictChallenge, tag); ok {
			out = append(out, label)
		} else if slug := parsing.Slugify(tag); slug != "" {
			out = append(out, slug)
		}
	}
	return out
}

func (s *Scorer) challengeTopics(topics []string) []string {
	labels := toSet(s.extractor.Labels(tagging.DictChallenge))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if labels[t] {
			out = append(out, t)
		}
	}
	return out
}

// reasons evaluates the reason rules in a fixed order. Each rule adds text only
// when its own condition holds.
func (s *Scorer) reasons(profile *types.Profile, record *types.SessionRecord, b types.Breakdown, best studentMatch, sharedTopics []string) []string {
	reasons := make([]string, 0)

	switch {
	case b.CoachAffinity >= 1.0:
		reasons = append(reasons, "your previous successful session")
	case b.CoachAffinity > 0:
		reasons = append(reasons, "similar coaching style")
	}

	if best.gradeCloseness >= 1.0 {
		reasons = append(reasons, "same grade level")
	}
	if best.trackMatch {
		reasons = append(reasons, fmt.Sprintf("same focus area (%s)", record.StudentProfile.Track))
	}

	if schools := mentionedSchools(profile.TargetSchools, record.Text()); len(schools) > 0 {
		reasons = append(reasons, fmt.Sprintf("discusses %s", strings.Join(schools, ", ")))
	}

	challenges := best.sharedChallenges
	if len(challenges) == 0 {
		challenges = sharedTopics
	}
	if len(challenges) > 0 {
		reasons = append(reasons, fmt.Sprintf("addresses %s", strings.Join(challenges, ", ")))
	}

	if record.RequiredForOnboarding && profile.IsInTraining() {
		reasons = append(reasons, "required for onboarding")
	}
	if record.SessionType == types.SessionTypeParent || containsString(record.Topics, "parent-communication") {
		reasons = append(reasons, "parent communication example")
	}
	if record.SessionDate != nil && b.Recency >= s.cfg.RecentThreshold {
		reasons = append(reasons, "recent session")
	}

	return reasons
}

// mentionedSchools returns the target schools named in text, in profile order.
func mentionedSchools(schools []string, text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	for _, school := range schools {
		name := strings.TrimSpace(school)
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			found = append(found, name)
		}
	}
	return found
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
