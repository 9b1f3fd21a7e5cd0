// Package types provides type definitions for structured data used throughout the session-indexer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Breakdown holds every named sub-score of a relevance score, each in [0,1].
type Breakdown struct {
	CoachAffinity     float64 `json:"coach_affinity"`
	StudentSimilarity float64 `json:"student_similarity"`
	TypeRelevance     float64 `json:"type_relevance"`
	TopicOverlap      float64 `json:"topic_overlap"`
	Recency           float64 `json:"recency"`
}

// ScoredCandidate pairs a session record with its relevance score against a profile.
type ScoredCandidate struct {
	Record    SessionRecord `json:"record"`
	Score     float64       `json:"score"`
	Breakdown Breakdown     `json:"breakdown"`
	Reasons   []string      `json:"reasons"`
}

// BucketName identifies a recommendation bucket.
type BucketName string

// Buckets in the order candidates are tested against them.
const (
	BucketMustWatch        BucketName = "must_watch"
	BucketHighlyRelevant   BucketName = "highly_relevant"
	BucketSimilarCase      BucketName = "similar_case"
	BucketParentManagement BucketName = "parent_management"
	BucketSkillBuilding    BucketName = "skill_building"
)

// BucketOrder lists buckets in priority order.
var BucketOrder = []BucketName{
	BucketMustWatch,
	BucketHighlyRelevant,
	BucketSimilarCase,
	BucketParentManagement,
	BucketSkillBuilding,
}

// Bucket is a named, size-capped list of ranked candidates.
type Bucket struct {
	Name       BucketName        `json:"name"`
	Candidates []ScoredCandidate `json:"candidates"`
	Overflow   int               `json:"overflow"`
}

// RecommendationSet is an ordered partition of scored candidates into buckets.
type RecommendationSet struct {
	Buckets    []Bucket `json:"buckets"`
	Considered int      `json:"considered"`
	BelowFloor int      `json:"below_floor"`
}

// Bucket returns the named bucket, or nil when absent.
func (s *RecommendationSet) Bucket(name BucketName) *Bucket {
	for i := range s.Buckets {
		if s.Buckets[i].Name == name {
			return &s.Buckets[i]
		}
	}
	return nil
}

// CriticalSessions groups a student's sessions by onboarding-relevant type.
type CriticalSessions struct {
	Student           string          `json:"student"`
	GamePlan          []SessionRecord `json:"game_plan"`
	Hour168           []SessionRecord `json:"hour_168"`
	ExecutionExamples []SessionRecord `json:"execution_examples"`
	ParentSessions    []SessionRecord `json:"parent_sessions"`
	Milestones        []SessionRecord `json:"milestones"`
	Stats             CriticalStats   `json:"stats"`
}

// CriticalStats summarizes a student's session coverage.
type CriticalStats struct {
	Total           int                 `json:"total"`
	ByType          map[SessionType]int `json:"by_type"`
	HasGamePlan     bool                `json:"has_game_plan"`
	HasHour168      bool                `json:"has_hour_168"`
	MissingRequired []SessionType       `json:"missing_required"`
}
