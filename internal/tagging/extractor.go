// Package tagging derives topic and demographic tags from a record's text surfaces.
// It never classifies session type; its output is purely additive metadata.
package tagging

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/types"
)

// gradeValue matches an explicit grade field such as "11" or "11th". Free text never
// goes through it, so date ordinals like "March 19th" are not read as grades.
var gradeValue = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)

// Input is the text and already-extracted facts used to build tags.
type Input struct {
	Text        string
	Coach       string
	Student     string
	SessionType types.SessionType
	Week        *int
}

// Result is the extracted topic set, tag set and student profile.
type Result struct {
	Topics         []string
	Tags           []string
	StudentProfile types.StudentProfile
}

// Extractor matches text against keyword dictionaries by substring containment.
type Extractor struct {
	dicts  Dictionaries
	byName map[string]Dictionary
}

// NewExtractor builds an extractor over the given dictionaries. Synonyms are lowercased.
func NewExtractor(dicts Dictionaries) *Extractor {
	lower := func(d Dictionary) Dictionary {
		out := Dictionary{Name: d.Name, Sentinel: d.Sentinel, Categories: make([]Category, 0, len(d.Categories))}
		for _, c := range d.Categories {
			syns := make([]string, 0, len(c.Synonyms))
			for _, s := range c.Synonyms {
				if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
					syns = append(syns, s)
				}
			}
			out.Categories = append(out.Categories, Category{Label: c.Label, Synonyms: syns})
		}
		return out
	}

	e := &Extractor{
		dicts: Dictionaries{
			Track:     lower(dicts.Track),
			Grade:     lower(dicts.Grade),
			Challenge: lower(dicts.Challenge),
			Profile:   lower(dicts.Profile),
		},
	}
	e.byName = map[string]Dictionary{
		DictTrack:     e.dicts.Track,
		DictGrade:     e.dicts.Grade,
		DictChallenge: e.dicts.Challenge,
		DictProfile:   e.dicts.Profile,
	}
	return e
}

// Extract computes topics, tags and the student profile for the input.
func (e *Extractor) Extract(in Input) Result {
	text := strings.ToLower(in.Text)

	topicSet := make(map[string]struct{})
	first := make(map[string]string, 4)
	for _, dict := range e.dicts.ordered() {
		hits := matchAll(dict, text)
		for _, label := range hits {
			topicSet[label] = struct{}{}
		}
		if len(hits) > 0 {
			first[dict.Name] = hits[0]
		} else {
			first[dict.Name] = dict.Sentinel
		}
	}

	topics := make([]string, 0, len(topicSet))
	for label := range topicSet {
		topics = append(topics, label)
	}
	slices.Sort(topics)

	profile := types.StudentProfile{
		Grade:   first[DictGrade],
		Track:   first[DictTrack],
		Profile: first[DictProfile],
	}

	return Result{
		Topics:         topics,
		Tags:           e.buildTags(in, profile),
		StudentProfile: profile,
	}
}

func (e *Extractor) buildTags(in Input, profile types.StudentProfile) []string {
	raw := []string{in.Coach, in.Student}
	if in.SessionType != "" {
		raw = append(raw, string(in.SessionType))
	}
	if in.Week != nil {
		raw = append(raw, fmt.Sprintf("week-%d", *in.Week))
	}
	if profile.Grade != e.dicts.Grade.Sentinel {
		raw = append(raw, profile.Grade)
	}
	if profile.Track != e.dicts.Track.Sentinel {
		raw = append(raw, profile.Track)
	}
	if profile.Profile != e.dicts.Profile.Sentinel {
		raw = append(raw, profile.Profile)
	}
	return parsing.NormalizeTags(raw)
}

// Categorize maps free text to the first matching category label of the named dictionary.
// A value that already equals a label is returned as-is.
func (e *Extractor) Categorize(dictName, value string) (string, bool) {
	dict, ok := e.byName[dictName]
	if !ok {
		return "", false
	}
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return "", false
	}
	slug := parsing.Slugify(lower)
	if m := gradeValue.FindStringSubmatch(lower); m != nil && dictName == DictGrade {
		n, _ := strconv.Atoi(m[1])
		slug = fmt.Sprintf("grade-%d", n)
	}
	for _, c := range dict.Categories {
		if c.Label == slug {
			return c.Label, true
		}
	}
	if hits := matchAll(dict, lower); len(hits) > 0 {
		return hits[0], true
	}
	return "", false
}

// Labels returns the category labels of the named dictionary in order.
func (e *Extractor) Labels(dictName string) []string {
	dict := e.byName[dictName]
	labels := make([]string, 0, len(dict.Categories))
	for _, c := range dict.Categories {
		labels = append(labels, c.Label)
	}
	return labels
}

// Sentinel returns the fallback value of the named dictionary.
func (e *Extractor) Sentinel(dictName string) string {
	return e.byName[dictName].Sentinel
}

// GradeOrdinal returns the numeric level of a "grade-N" label, or false.
func GradeOrdinal(label string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(label, "grade-"))
	if err != nil || !strings.HasPrefix(label, "grade-") {
		return 0, false
	}
	return n, true
}

func matchAll(dict Dictionary, text string) []string {
	if text == "" {
		return nil
	}
	var hits []string
	for _, c := range dict.Categories {
		for _, syn := range c.Synonyms {
			if strings.Contains(text, syn) {
				hits = append(hits, c.Label)
				break
			}
		}
	}
	return hits
}
