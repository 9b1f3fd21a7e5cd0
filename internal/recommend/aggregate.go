// Package recommend ranks scored session records and partitions them into
// priority buckets for a profile.
package recommend

import (
	"slices"
	"strings"

	"github.com/jonathan/session-indexer/internal/types"
)

const parentTopic = "parent-communication"

// Config holds bucket thresholds and caps.
type Config struct {
	ScoreFloor           float64 `koanf:"score_floor" yaml:"score_floor" validate:"gte=0,lte=1"`
	MustWatchThreshold   float64 `koanf:"must_watch_threshold" yaml:"must_watch_threshold" validate:"gte=0,lte=1"`
	HighScoreThreshold   float64 `koanf:"high_score_threshold" yaml:"high_score_threshold" validate:"gte=0,lte=1"`
	HighRecencyThreshold float64 `koanf:"high_recency_threshold" yaml:"high_recency_threshold" validate:"gte=0,lte=1"`
	SimilarityThreshold  float64 `koanf:"similarity_threshold" yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	MustWatchCap         int     `koanf:"must_watch_cap" yaml:"must_watch_cap" validate:"gte=1"`
	HighlyRelevantCap    int     `koanf:"highly_relevant_cap" yaml:"highly_relevant_cap" validate:"gte=1"`
	SimilarCaseCap       int     `koanf:"similar_case_cap" yaml:"similar_case_cap" validate:"gte=1"`
	ParentManagementCap  int     `koanf:"parent_management_cap" yaml:"parent_management_cap" validate:"gte=1"`
	SkillBuildingCap     int     `koanf:"skill_building_cap" yaml:"skill_building_cap" validate:"gte=1"`
	ExecutionExamples    int     `koanf:"execution_examples" yaml:"execution_examples" validate:"gte=1"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		ScoreFloor:           0.25,
		MustWatchThreshold:   0.6,
		HighScoreThreshold:   0.6,
		HighRecencyThreshold: 0.7,
		SimilarityThreshold:  0.6,
		MustWatchCap:         5,
		HighlyRelevantCap:    5,
		SimilarCaseCap:       5,
		ParentManagementCap:  3,
		SkillBuildingCap:     10,
		ExecutionExamples:    3,
	}
}

// SortCandidates orders candidates by score descending, then newer session date
// (missing dates last), then external id.
func SortCandidates(candidates []types.ScoredCandidate) {
	slices.SortStableFunc(candidates, func(a, b types.ScoredCandidate) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		da, db := a.Record.SessionDate, b.Record.SessionDate
		switch {
		case da != nil && db == nil:
			return -1
		case da == nil && db != nil:
			return 1
		case da != nil && db != nil && !da.Equal(*db):
			if da.After(*db) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Record.ExternalID, b.Record.ExternalID)
	})
}

// Aggregate sorts candidates and assigns each to at most one bucket, testing buckets
// in priority order. Candidates below the floor are dropped. Each bucket keeps its
// highest-ranked entries up to its cap; the rest are counted as overflow.
func Aggregate(cfg Config, profile *types.Profile, candidates []types.ScoredCandidate) types.RecommendationSet {
	if profile == nil {
		profile = &types.Profile{}
	}

	sorted := append([]types.ScoredCandidate(nil), candidates...)
	SortCandidates(sorted)

	caps := map[types.BucketName]int{
		types.BucketMustWatch:        cfg.MustWatchCap,
		types.BucketHighlyRelevant:   cfg.HighlyRelevantCap,
		types.BucketSimilarCase:      cfg.SimilarCaseCap,
		types.BucketParentManagement: cfg.ParentManagementCap,
		types.BucketSkillBuilding:    cfg.SkillBuildingCap,
	}
	buckets := make(map[types.BucketName]*types.Bucket, len(types.BucketOrder))
	for _, name := range types.BucketOrder {
		buckets[name] = &types.Bucket{Name: name, Candidates: make([]types.ScoredCandidate, 0)}
	}

	set := types.RecommendationSet{Considered: len(sorted)}
	training := profile.IsInTraining()
	for _, c := range sorted {
		if c.Score < cfg.ScoreFloor {
			set.BelowFloor++
			continue
		}
		b := buckets[assign(cfg, training, &c)]
		if len(b.Candidates) < caps[b.Name] {
			b.Candidates = append(b.Candidates, c)
		} else {
			b.Overflow++
		}
	}

	set.Buckets = make([]types.Bucket, 0, len(types.BucketOrder))
	for _, name := range types.BucketOrder {
		set.Buckets = append(set.Buckets, *buckets[name])
	}
	return set
}

// assign returns the first bucket whose rule accepts the candidate.
func assign(cfg Config, training bool, c *types.ScoredCandidate) types.BucketName {
	rec := &c.Record
	switch {
	case training && rec.RequiredForOnboarding && c.Score >= cfg.MustWatchThreshold:
		return types.BucketMustWatch
	case c.Score >= cfg.HighScoreThreshold && c.Breakdown.Recency >= cfg.HighRecencyThreshold:
		return types.BucketHighlyRelevant
	case c.Breakdown.StudentSimilarity >= cfg.SimilarityThreshold:
		return types.BucketSimilarCase
	case rec.SessionType == types.SessionTypeParent || slices.Contains(rec.Topics, parentTopic):
		return types.BucketParentManagement
	default:
		return types.BucketSkillBuilding
	}
}
