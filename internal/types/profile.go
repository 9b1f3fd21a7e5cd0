// Package types provides type definitions for structured data used throughout the session-indexer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// ProfileKind distinguishes a coach-centered query from a single-student query.
type ProfileKind string

// Profile kinds.
const (
	ProfileKindCoach   ProfileKind = "coach"
	ProfileKindStudent ProfileKind = "student"
)

// trainingWeeks is the number of program weeks a coach is considered to be in onboarding.
const trainingWeeks = 4

// Profile is the entity matched against the corpus. It is built per request and never persisted.
// Every field is optional; a profile with nothing set scores against neutral defaults.
type Profile struct {
	Kind          ProfileKind       `json:"kind,omitempty" validate:"omitempty,oneof=coach student"`
	Coach         string            `json:"coach,omitempty" validate:"max=128"`
	Student       string            `json:"student,omitempty" validate:"max=128"`
	Grade         string            `json:"grade,omitempty" validate:"max=32"`
	Track         string            `json:"track,omitempty" validate:"max=128"`
	TargetSchools []string          `json:"target_schools,omitempty" validate:"max=50,dive,max=128"`
	ChallengeTags []string          `json:"challenge_tags,omitempty" validate:"max=50,dive,max=64"`
	InterestTags  []string          `json:"interest_tags,omitempty" validate:"max=50,dive,max=64"`
	ProgramWeek   int               `json:"program_week,omitempty" validate:"gte=0,lte=520"`
	InTraining    bool              `json:"in_training,omitempty"`
	Struggling    bool              `json:"struggling,omitempty"`
	Students      []AssignedStudent `json:"students,omitempty" validate:"max=100,dive"`
}

// AssignedStudent is one student on a coach's roster.
type AssignedStudent struct {
	Name          string   `json:"name" validate:"max=128"`
	Grade         string   `json:"grade,omitempty" validate:"max=32"`
	Track         string   `json:"track,omitempty" validate:"max=128"`
	ChallengeTags []string `json:"challenge_tags,omitempty" validate:"max=50,dive,max=64"`
	Struggling    bool     `json:"struggling,omitempty"`
}

// Validate checks field bounds. It never rejects an empty profile.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// IsInTraining reports whether the profile represents a coach still in onboarding.
func (p *Profile) IsInTraining() bool {
	if p.InTraining {
		return true
	}
	return p.Kind == ProfileKindCoach && p.ProgramWeek > 0 && p.ProgramWeek <= trainingWeeks
}

// IsStruggling reports whether the profile or any assigned student is flagged as struggling.
func (p *Profile) IsStruggling() bool {
	if p.Struggling {
		return true
	}
	for _, s := range p.Students {
		if s.Struggling {
			return true
		}
	}
	return false
}

// StudentTargets returns the student descriptions to compare against. A coach profile
// yields its roster; otherwise the profile's own grade, track and challenges form one target.
func (p *Profile) StudentTargets() []AssignedStudent {
	if len(p.Students) > 0 {
		return p.Students
	}
	return []AssignedStudent{{
		Name:          p.Student,
		Grade:         p.Grade,
		Track:         p.Track,
		ChallengeTags: p.ChallengeTags,
		Struggling:    p.Struggling,
	}}
}
