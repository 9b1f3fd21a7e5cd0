package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseSessionType(t *testing.T) {
	tests := []struct {
		label string
		want  SessionType
		ok    bool
	}{
		{"GAME_PLAN", SessionTypeGamePlan, true},
		{"game plan", SessionTypeGamePlan, true},
		{" hour-168 ", SessionTypeHour168, true},
		{"parent_session", SessionTypeParent, true},
		{"karaoke", SessionTypeUnclassified, false},
		{"", SessionTypeUnclassified, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseSessionType(tt.label)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestConfidence_Max(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceLow.Max(ConfidenceHigh))
	assert.Equal(t, ConfidenceMedium, ConfidenceMedium.Max(ConfidenceLow))
	assert.Equal(t, ConfidenceLow, Confidence("").Max(ConfidenceLow))
	assert.Zero(t, Confidence("bogus").Rank())
}

func TestSessionRecord_Participants(t *testing.T) {
	rec := SessionRecord{Participants: Participants{Coach: strPtr("Jenny")}}
	assert.Equal(t, "Jenny", rec.Coach())
	assert.Equal(t, "", rec.Student())
}

func TestRawRecord_TextSkipsEmptySurfaces(t *testing.T) {
	raw := RawRecord{
		Filename:   "GamePlan_Jenny",
		Title:      "  ",
		FolderPath: "/Jenny",
		SourceTags: []string{"onboarding", ""},
	}
	assert.Equal(t, "GamePlan_Jenny /Jenny onboarding", raw.Text())
}

func TestSessionRecord_SameEnrichment(t *testing.T) {
	day := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	week := 2
	base := SessionRecord{
		RawRecord:    RawRecord{ExternalID: "a", Filename: "x"},
		Participants: Participants{Coach: strPtr("Jenny"), Student: strPtr("Arshiya")},
		SessionWeek:  &week,
		SessionDate:  &day,
		SessionType:  SessionTypeGamePlan,
		Priority:     1,
		Topics:       []string{"stem"},
		Tags:         []string{"jenny", "arshiya"},
		Confidence:   ConfidenceHigh,
	}

	same := base
	same.RawRecord.Filename = "renamed"
	sameDay := day.In(time.FixedZone("X", 3600))
	same.SessionDate = &sameDay
	stamp := time.Now()
	same.IndexedAt = &stamp
	assert.True(t, base.SameEnrichment(&same))

	changed := base
	changed.Participants.Student = nil
	assert.False(t, base.SameEnrichment(&changed))

	changed = base
	changed.Tags = []string{"jenny"}
	assert.False(t, base.SameEnrichment(&changed))

	assert.False(t, base.SameEnrichment(nil))
}

func TestSessionRecord_JSONNullables(t *testing.T) {
	rec := SessionRecord{
		RawRecord:   RawRecord{ExternalID: "a"},
		SessionType: SessionTypeUnclassified,
		Confidence:  ConfidenceLow,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "a", m["external_id"])
	assert.Nil(t, m["session_date"])
	assert.Nil(t, m["session_week"])
	assert.Contains(t, m, "participants")
	assert.NotContains(t, m, "indexed_at")
}
