package recommend

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonathan/session-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func candidate(id string, score float64, mutate func(*types.ScoredCandidate)) types.ScoredCandidate {
	c := types.ScoredCandidate{
		Record: types.SessionRecord{
			RawRecord:   types.RawRecord{ExternalID: id},
			SessionType: types.SessionTypeExecution,
		},
		Score: score,
	}
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func bucketIDs(set types.RecommendationSet, name types.BucketName) []string {
	b := set.Bucket(name)
	if b == nil {
		return nil
	}
	ids := make([]string, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		ids = append(ids, c.Record.ExternalID)
	}
	return ids
}

func TestSortCandidates_TieBreaks(t *testing.T) {
	cands := []types.ScoredCandidate{
		candidate("b", 0.5, nil),
		candidate("a", 0.5, nil),
		candidate("old", 0.5, func(c *types.ScoredCandidate) { c.Record.SessionDate = datePtr(2023, 1, 1) }),
		candidate("new", 0.5, func(c *types.ScoredCandidate) { c.Record.SessionDate = datePtr(2024, 1, 1) }),
		candidate("top", 0.9, nil),
	}

	SortCandidates(cands)

	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.Record.ExternalID)
	}
	assert.Equal(t, []string{"top", "new", "old", "a", "b"}, ids)
}

func TestAggregate_BucketRules(t *testing.T) {
	cfg := DefaultConfig()
	profile := &types.Profile{Kind: types.ProfileKindCoach, ProgramWeek: 1}

	cands := []types.ScoredCandidate{
		candidate("must", 0.9, func(c *types.ScoredCandidate) {
			c.Record.SessionType = types.SessionTypeGamePlan
			c.Record.RequiredForOnboarding = true
			c.Breakdown.Recency = 1
		}),
		candidate("hot", 0.7, func(c *types.ScoredCandidate) { c.Breakdown.Recency = 0.9 }),
		candidate("similar", 0.5, func(c *types.ScoredCandidate) { c.Breakdown.StudentSimilarity = 0.8 }),
		candidate("parent", 0.4, func(c *types.ScoredCandidate) { c.Record.Topics = []string{"parent-communication"} }),
		candidate("skill", 0.3, nil),
		candidate("dropped", 0.1, nil),
	}

	set := Aggregate(cfg, profile, cands)

	assert.Equal(t, []string{"must"}, bucketIDs(set, types.BucketMustWatch))
	assert.Equal(t, []string{"hot"}, bucketIDs(set, types.BucketHighlyRelevant))
	assert.Equal(t, []string{"similar"}, bucketIDs(set, types.BucketSimilarCase))
	assert.Equal(t, []string{"parent"}, bucketIDs(set, types.BucketParentManagement))
	assert.Equal(t, []string{"skill"}, bucketIDs(set, types.BucketSkillBuilding))
	assert.Equal(t, 6, set.Considered)
	assert.Equal(t, 1, set.BelowFloor)
}

func TestAggregate_MustWatchOnlyWhileTraining(t *testing.T) {
	cfg := DefaultConfig()
	c := candidate("plan", 0.9, func(c *types.ScoredCandidate) {
		c.Record.RequiredForOnboarding = true
		c.Breakdown.Recency = 1
	})

	set := Aggregate(cfg, &types.Profile{}, []types.ScoredCandidate{c})

	assert.Empty(t, bucketIDs(set, types.BucketMustWatch))
	assert.Equal(t, []string{"plan"}, bucketIDs(set, types.BucketHighlyRelevant))
}

func TestAggregate_CapDropsLowestOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cands := make([]types.ScoredCandidate, 0, 6)
	for i := 0; i < 6; i++ {
		score := 0.4 - float64(i)*0.01
		cands = append(cands, candidate(fmt.Sprintf("p%d", i), score, func(c *types.ScoredCandidate) {
			c.Record.SessionType = types.SessionTypeParent
		}))
	}

	set := Aggregate(cfg, nil, cands)

	b := set.Bucket(types.BucketParentManagement)
	require.NotNil(t, b)
	assert.Equal(t, []string{"p0", "p1", "p2"}, bucketIDs(set, types.BucketParentManagement))
	assert.Equal(t, 3, b.Overflow)
	assert.Empty(t, bucketIDs(set, types.BucketSkillBuilding))
}

func TestAggregate_BucketExclusivity(t *testing.T) {
	cfg := DefaultConfig()
	profile := &types.Profile{InTraining: true}
	cands := make([]types.ScoredCandidate, 0, 40)
	for i := 0; i < 40; i++ {
		cands = append(cands, candidate(fmt.Sprintf("r%02d", i), float64(i%10)/10+0.05, func(c *types.ScoredCandidate) {
			c.Record.RequiredForOnboarding = i%2 == 0
			c.Breakdown.Recency = float64(i%5) / 4
			c.Breakdown.StudentSimilarity = float64(i%3) / 2
			if i%7 == 0 {
				c.Record.SessionType = types.SessionTypeParent
			}
		}))
	}

	set := Aggregate(cfg, profile, cands)

	seen := make(map[string]types.BucketName)
	for _, b := range set.Buckets {
		for _, c := range b.Candidates {
			prev, dup := seen[c.Record.ExternalID]
			assert.False(t, dup, "%s in both %s and %s", c.Record.ExternalID, prev, b.Name)
			seen[c.Record.ExternalID] = b.Name
		}
	}
}

func TestAggregate_PreservesRankWithinBucket(t *testing.T) {
	cfg := DefaultConfig()
	cands := []types.ScoredCandidate{
		candidate("low", 0.3, nil),
		candidate("high", 0.5, nil),
		candidate("mid", 0.4, nil),
	}

	set := Aggregate(cfg, nil, cands)

	assert.Equal(t, []string{"high", "mid", "low"}, bucketIDs(set, types.BucketSkillBuilding))
}

func TestAggregate_EmptyInput(t *testing.T) {
	set := Aggregate(DefaultConfig(), nil, nil)
	require.Len(t, set.Buckets, len(types.BucketOrder))
	for _, b := range set.Buckets {
		assert.Empty(t, b.Candidates)
	}
}
