package ranking

import (
	"testing"
	"time"

	"github.com/jonathan/session-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	require.NoError(t, w.Validate())
}

func TestWeightsValidate_RejectsBadSum(t *testing.T) {
	w := DefaultWeights()
	w.Recency = 0.5
	assert.Error(t, w.Validate())
}

func TestWeightsValidate_RejectsNegative(t *testing.T) {
	w := Weights{CoachAffinity: -0.2, StudentSimilarity: 0.6, TypeRelevance: 0.2, TopicOverlap: 0.2, Recency: 0.2}
	assert.Error(t, w.Validate())
}

func TestComputeCoachAffinity_ExactMatch(t *testing.T) {
	styles := map[string]int{"jenny": 0, "priya": 0, "kelvin": 1}
	assert.Equal(t, 1.0, computeCoachAffinity("jenny", "Jenny", styles, 0.5))
}

func TestComputeCoachAffinity_SameStyleGroup(t *testing.T) {
	styles := map[string]int{"jenny": 0, "priya": 0, "kelvin": 1}
	assert.Equal(t, 0.5, computeCoachAffinity("Priya", "Jenny", styles, 0.5))
}

func TestComputeCoachAffinity_DifferentGroup(t *testing.T) {
	styles := map[string]int{"jenny": 0, "priya": 0, "kelvin": 1}
	assert.Equal(t, 0.0, computeCoachAffinity("Kelvin", "Jenny", styles, 0.5))
}

func TestComputeCoachAffinity_MissingCoach(t *testing.T) {
	styles := map[string]int{"jenny": 0}
	assert.Equal(t, 0.0, computeCoachAffinity("", "Jenny", styles, 0.5))
	assert.Equal(t, 0.0, computeCoachAffinity("Jenny", "", styles, 0.5))
}

func TestComputeGradeCloseness(t *testing.T) {
	assert.Equal(t, 1.0, computeGradeCloseness("grade-11", "grade-11", 0.5))
	assert.Equal(t, 0.5, computeGradeCloseness("grade-11", "grade-10", 0.5))
	assert.Equal(t, 0.5, computeGradeCloseness("grade-11", "grade-12", 0.5))
	assert.Equal(t, 0.0, computeGradeCloseness("grade-9", "grade-12", 0.5))
	assert.Equal(t, 0.0, computeGradeCloseness("grade-9", "unknown", 0.5))
}

func TestComputeOverlapRatio_DividesByLargerSet(t *testing.T) {
	ratio, shared := computeOverlapRatio([]string{"essays", "test-prep"}, []string{"essays", "motivation", "interviews", "college-list"})
	assert.InDelta(t, 0.25, ratio, 1e-9)
	assert.Equal(t, []string{"essays"}, shared)
}

func TestComputeOverlapRatio_EmptySetIsZero(t *testing.T) {
	ratio, shared := computeOverlapRatio(nil, []string{"essays"})
	assert.Equal(t, 0.0, ratio)
	assert.Empty(t, shared)

	ratio, _ = computeOverlapRatio([]string{"essays"}, []string{})
	assert.Equal(t, 0.0, ratio)
}

func TestComputeOverlapRatio_IgnoresDuplicates(t *testing.T) {
	ratio, shared := computeOverlapRatio([]string{"essays", "essays"}, []string{"essays"})
	assert.Equal(t, 1.0, ratio)
	assert.Equal(t, []string{"essays"}, shared)
}

func TestComputeTypeRelevance_TrainingNeed(t *testing.T) {
	needs := []Need{defaultTrainingNeed}
	assert.Equal(t, 1.0, computeTypeRelevance(types.SessionTypeGamePlan, needs, 0.25))
	assert.Equal(t, 1.0, computeTypeRelevance(types.SessionTypeHour168, needs, 0.25))
	assert.Equal(t, 0.25, computeTypeRelevance(types.SessionTypeParent, needs, 0.25))
}

func TestComputeTypeRelevance_StrugglingNeed(t *testing.T) {
	needs := []Need{defaultStrugglingNeed}
	assert.Equal(t, 1.0, computeTypeRelevance(types.SessionTypeParent, needs, 0.25))
}

func TestComputeTypeRelevance_BaselineWithoutNeed(t *testing.T) {
	assert.Equal(t, 0.25, computeTypeRelevance(types.SessionTypeGamePlan, nil, 0.25))
	assert.Equal(t, 0.0, computeTypeRelevance(types.SessionTypeUnclassified, nil, 0.25))
}

func TestComputeRecencyScore(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.5, computeRecencyScore(nil, now, 3))

	same := now
	assert.InDelta(t, 1.0, computeRecencyScore(&same, now, 3), 1e-9)

	future := now.AddDate(0, 1, 0)
	assert.Equal(t, 1.0, computeRecencyScore(&future, now, 3))

	old := now.AddDate(-5, 0, 0)
	assert.Equal(t, 0.0, computeRecencyScore(&old, now, 3))

	mid := now.Add(-time.Duration(1.5 * 365.25 * 24 * float64(time.Hour)))
	assert.InDelta(t, 0.5, computeRecencyScore(&mid, now, 3), 1e-6)
}
