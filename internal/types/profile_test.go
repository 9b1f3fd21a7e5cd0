package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfile_Validate(t *testing.T) {
	assert.NoError(t, (&Profile{}).Validate())
	assert.NoError(t, (&Profile{Kind: ProfileKindCoach, Coach: "Jenny"}).Validate())
	assert.Error(t, (&Profile{Kind: "parent"}).Validate())
	assert.Error(t, (&Profile{ProgramWeek: -1}).Validate())
	assert.Error(t, (&Profile{Coach: strings.Repeat("x", 129)}).Validate())
}

func TestProfile_IsInTraining(t *testing.T) {
	assert.True(t, (&Profile{InTraining: true}).IsInTraining())
	assert.True(t, (&Profile{Kind: ProfileKindCoach, ProgramWeek: 3}).IsInTraining())
	assert.False(t, (&Profile{Kind: ProfileKindCoach, ProgramWeek: 5}).IsInTraining())
	assert.False(t, (&Profile{Kind: ProfileKindStudent, ProgramWeek: 2}).IsInTraining())
}

func TestProfile_IsStruggling(t *testing.T) {
	assert.False(t, (&Profile{}).IsStruggling())
	assert.True(t, (&Profile{Students: []AssignedStudent{{Name: "A"}, {Name: "B", Struggling: true}}}).IsStruggling())
}

func TestProfile_StudentTargets(t *testing.T) {
	p := &Profile{Student: "Arshiya", Grade: "11", ChallengeTags: []string{"essays"}}
	targets := p.StudentTargets()
	assert.Len(t, targets, 1)
	assert.Equal(t, "Arshiya", targets[0].Name)
	assert.Equal(t, []string{"essays"}, targets[0].ChallengeTags)

	roster := &Profile{Kind: ProfileKindCoach, Students: []AssignedStudent{{Name: "A"}, {Name: "B"}}}
	assert.Len(t, roster.StudentTargets(), 2)
}

func TestRecommendationSet_Bucket(t *testing.T) {
	set := &RecommendationSet{Buckets: []Bucket{{Name: BucketMustWatch}, {Name: BucketSimilarCase}}}
	assert.NotNil(t, set.Bucket(BucketSimilarCase))
	assert.Nil(t, set.Bucket(BucketSkillBuilding))
}
