package classify

import (
	"errors"
	"testing"

	"github.com/jonathan/session-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(DefaultRules())
	require.NoError(t, err)
	return c
}

func TestClassify_TableOrder(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		text     string
		expected types.SessionType
	}{
		{"game plan", "GamePlan_A_Jenny_Arshiya_2024-09-15", types.SessionTypeGamePlan},
		{"game plan beats execution", "game plan execution review", types.SessionTypeGamePlan},
		{"hour 168", "Hour168 kickoff with Maya", types.SessionTypeHour168},
		{"kick-off", "Kick-off call", types.SessionTypeHour168},
		{"execution", "Execution_Kelvin_Aarnav", types.SessionTypeExecution},
		{"check-in", "weekly check-in", types.SessionTypeExecution},
		{"parent", "Parent_Meeting_Zara", types.SessionTypeParent},
		{"mom", "call with mom", types.SessionTypeParent},
		{"milestone", "Midpoint milestone review", types.SessionTypeMilestone},
		{"wrap up", "wrap-up session", types.SessionTypeMilestone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(Input{Text: tt.text}).Type)
		})
	}
}

func TestClassify_NoFalsePositivesInsideWords(t *testing.T) {
	c := newTestClassifier(t)

	assert.Equal(t, types.SessionTypeUnclassified, c.Classify(Input{Text: "transparent essay feedback"}).Type)
	assert.Equal(t, types.SessionTypeUnclassified, c.Classify(Input{Text: "checking the essays"}).Type)
	assert.Equal(t, types.SessionTypeUnclassified, c.Classify(Input{Text: "Ref 1680 recording"}).Type)
}

func TestClassify_Week1WithCorroboratingText(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify(Input{Text: "first session with Maya", SessionWeek: intPtr(1)})
	assert.Equal(t, types.SessionTypeHour168, res.Type)
	assert.Equal(t, 2, res.Priority)
	assert.True(t, res.Required)
}

func TestClassify_Week1OverridesEarlierRule(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify(Input{Text: "game plan first session", SessionWeek: intPtr(2)})
	assert.Equal(t, types.SessionTypeHour168, res.Type)

	res = c.Classify(Input{Text: "game plan first session", SessionWeek: intPtr(3)})
	assert.Equal(t, types.SessionTypeGamePlan, res.Type)
}

func TestClassify_WeekAloneNeverForcesHour168(t *testing.T) {
	c := newTestClassifier(t)

	generic := c.Classify(Input{Text: "Jenny Maya", SessionWeek: intPtr(1), Generic: true})
	assert.Equal(t, types.SessionTypeExecution, generic.Type)

	bare := c.Classify(Input{Text: "recording", SessionWeek: intPtr(1)})
	assert.Equal(t, types.SessionTypeUnclassified, bare.Type)
}

func TestClassify_TypeHint(t *testing.T) {
	c := newTestClassifier(t)

	assert.Equal(t, types.SessionTypeMilestone, c.Classify(Input{Text: "recording", TypeHint: "milestone"}).Type)
	assert.Equal(t, types.SessionTypeRegular, c.Classify(Input{Text: "recording", TypeHint: "regular"}).Type)
}

func TestClassify_MetadataFromTable(t *testing.T) {
	c := newTestClassifier(t)

	plan := c.Classify(Input{Text: "game plan"})
	assert.Equal(t, 1, plan.Priority)
	assert.True(t, plan.Required)

	parent := c.Classify(Input{Text: "parent call"})
	assert.Equal(t, 4, parent.Priority)
	assert.False(t, parent.Required)

	miss := c.Classify(Input{Text: "zzz"})
	assert.Equal(t, types.SessionTypeUnclassified, miss.Type)
	assert.Equal(t, 7, miss.Priority)
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t)
	in := Input{Text: "Execution_B_Kelvin_Aarnav_Wk2 first meeting", SessionWeek: intPtr(2)}
	first := c.Classify(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(in))
	}
}

func TestNew_InjectedTable(t *testing.T) {
	c, err := New([]Rule{
		{Type: types.SessionTypeParent, Patterns: []string{`family`}, Priority: 1},
		{Type: types.SessionTypeGamePlan, Patterns: []string{`plan`}, Priority: 2, Required: true},
	}, WithFallback(types.SessionTypeRegular))
	require.NoError(t, err)

	assert.Equal(t, types.SessionTypeParent, c.Classify(Input{Text: "family plan"}).Type)
	assert.Equal(t, []types.SessionType{types.SessionTypeGamePlan}, c.RequiredTypes())
	assert.Equal(t, types.SessionTypeRegular, c.Classify(Input{Text: "x", Generic: true}).Type)
}

func TestNew_InjectedTableNeedsFallbackEntry(t *testing.T) {
	_, err := New([]Rule{{Type: types.SessionTypeGamePlan, Patterns: []string{`plan`}}})
	assert.Error(t, err)
}

func TestNew_DuplicateType(t *testing.T) {
	_, err := New([]Rule{
		{Type: types.SessionTypeGamePlan, Patterns: []string{`a`}},
		{Type: types.SessionTypeGamePlan, Patterns: []string{`b`}},
	})
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]Rule{{Type: types.SessionTypeGamePlan, Patterns: []string{`(`}}})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestNew_UnknownFallback(t *testing.T) {
	_, err := New([]Rule{{Type: types.SessionTypeGamePlan, Patterns: []string{`a`}}},
		WithFallback(types.SessionTypeParent))
	assert.Error(t, err)

	c, err := New(DefaultRules(), WithFallback(types.SessionTypeRegular))
	require.NoError(t, err)
	assert.Equal(t, types.SessionTypeRegular, c.Classify(Input{Text: "x", Generic: true}).Type)
}

func TestRequiredTypes_Default(t *testing.T) {
	c := newTestClassifier(t)
	assert.Equal(t, []types.SessionType{
		types.SessionTypeGamePlan,
		types.SessionTypeHour168,
		types.SessionTypeExecution,
	}, c.RequiredTypes())
}
