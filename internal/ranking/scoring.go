// Package ranking scores enriched session records against a coach or student profile.
package ranking

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/tagging"
	"github.com/jonathan/session-indexer/internal/types"
)

// Default weights for scoring components
const (
	coachAffinityWeight     = 0.20
	studentSimilarityWeight = 0.30
	typeRelevanceWeight     = 0.20
	topicOverlapWeight      = 0.15
	recencyWeight           = 0.15
)

// Blend of the student similarity sub-score
const (
	gradeComponentWeight     = 0.4
	trackComponentWeight     = 0.3
	challengeComponentWeight = 0.3
)

const (
	defaultStyleCredit         = 0.5
	defaultAdjacentGradeCredit = 0.5
	defaultTypeBaseline        = 0.25
	defaultRecencyHorizonYears = 3.0
	neutralRecency             = 0.5
	weightTolerance            = 1e-6
)

// Weights are the named, overridable multipliers of each sub-score. They must sum to 1.
type Weights struct {
	CoachAffinity     float64 `koanf:"coach_affinity" yaml:"coach_affinity" json:"coach_affinity"`
	StudentSimilarity float64 `koanf:"student_similarity" yaml:"student_similarity" json:"student_similarity"`
	TypeRelevance     float64 `koanf:"type_relevance" yaml:"type_relevance" json:"type_relevance"`
	TopicOverlap      float64 `koanf:"topic_overlap" yaml:"topic_overlap" json:"topic_overlap"`
	Recency           float64 `koanf:"recency" yaml:"recency" json:"recency"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		CoachAffinity:     coachAffinityWeight,
		StudentSimilarity: studentSimilarityWeight,
		TypeRelevance:     typeRelevanceWeight,
		TopicOverlap:      topicOverlapWeight,
		Recency:           recencyWeight,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.CoachAffinity + w.StudentSimilarity + w.TypeRelevance + w.TopicOverlap + w.Recency
}

// Validate checks that no weight is negative and that they sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"coach_affinity":     w.CoachAffinity,
		"student_similarity": w.StudentSimilarity,
		"type_relevance":     w.TypeRelevance,
		"topic_overlap":      w.TopicOverlap,
		"recency":            w.Recency,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %f", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Apply returns the weighted sum of a breakdown.
func (w Weights) Apply(b types.Breakdown) float64 {
	return w.CoachAffinity*b.CoachAffinity +
		w.StudentSimilarity*b.StudentSimilarity +
		w.TypeRelevance*b.TypeRelevance +
		w.TopicOverlap*b.TopicOverlap +
		w.Recency*b.Recency
}

// Need is the type-relevance value a profile need assigns to session types.
type Need map[types.SessionType]float64

// defaultTrainingNeed applies to coaches still in onboarding.
var defaultTrainingNeed = Need{
	types.SessionTypeGamePlan:  1.0,
	types.SessionTypeHour168:   1.0,
	types.SessionTypeExecution: 0.7,
	types.SessionTypeMilestone: 0.5,
}

// defaultStrugglingNeed applies when the profile or a roster student is struggling.
var defaultStrugglingNeed = Need{
	types.SessionTypeParent:    1.0,
	types.SessionTypeExecution: 0.6,
	types.SessionTypeGamePlan:  0.5,
}

// computeCoachAffinity returns 1 for the same coach, the style credit for coaches in
// the same style group, and 0 otherwise (including when either coach is unknown).
func computeCoachAffinity(target, coach string, styles map[string]int, styleCredit float64) float64 {
	target = strings.ToLower(parsing.NormalizeName(target))
	coach = strings.ToLower(coach)
	if target == "" || coach == "" {
		return 0.0
	}
	if target == coach {
		return 1.0
	}
	tg, ok1 := styles[target]
	cg, ok2 := styles[coach]
	if ok1 && ok2 && tg == cg {
		return styleCredit
	}
	return 0.0
}

// computeGradeCloseness compares two grade labels on the ordinal grade scale.
func computeGradeCloseness(target, record string, adjacentCredit float64) float64 {
	a, ok1 := tagging.GradeOrdinal(target)
	b, ok2 := tagging.GradeOrdinal(record)
	if !ok1 || !ok2 {
		return 0.0
	}
	switch diff := a - b; {
	case diff == 0:
		return 1.0
	case diff == 1 || diff == -1:
		return adjacentCredit
	default:
		return 0.0
	}
}

// computeOverlapRatio is |a ∩ b| / max(|a|, |b|), defined as 0 when either set is empty.
// Returns the ratio and the shared elements in the order they appear in a.
func computeOverlapRatio(a, b []string) (float64, []string) {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0, nil
	}

	shared := make([]string, 0)
	seen := make(map[string]bool, len(setA))
	for _, v := range a {
		if setB[v] && !seen[v] {
			shared = append(shared, v)
			seen[v] = true
		}
	}

	denominator := len(setA)
	if len(setB) > denominator {
		denominator = len(setB)
	}
	return float64(len(shared)) / float64(denominator), shared
}

// computeTypeRelevance returns the highest value any active need assigns to the
// record's type, or the baseline when no active need covers it.
func computeTypeRelevance(sessionType types.SessionType, needs []Need, baseline float64) float64 {
	if sessionType == types.SessionTypeUnclassified {
		return 0.0
	}
	score := baseline
	for _, need := range needs {
		if v, ok := need[sessionType]; ok && v > score {
			score = v
		}
	}
	return clamp(score)
}

// computeRecencyScore decays linearly from 1.0 at zero age to 0.0 at the horizon.
// Returns 0.5 when the record has no session date (neutral score).
func computeRecencyScore(date *time.Time, now time.Time, horizonYears float64) float64 {
	if date == nil {
		return neutralRecency
	}

	yearsSince := now.Sub(*date).Hours() / (24 * 365.25)
	if yearsSince < 0 {
		return 1.0 // Future dates get max score
	}
	if horizonYears <= 0 || yearsSince >= horizonYears {
		return 0.0
	}

	return clamp(1.0 - (yearsSince / horizonYears))
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
