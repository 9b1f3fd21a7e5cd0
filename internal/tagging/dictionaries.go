package tagging

// Category is one label of a keyword dictionary together with its synonyms.
type Category struct {
	Label    string   `koanf:"label" yaml:"label"`
	Synonyms []string `koanf:"synonyms" yaml:"synonyms"`
}

// Dictionary is an ordered keyword group. The first category with a hit
// supplies the dictionary's field value; every category with a hit becomes a topic.
type Dictionary struct {
	Name       string     `koanf:"name" yaml:"name"`
	Sentinel   string     `koanf:"sentinel" yaml:"sentinel"`
	Categories []Category `koanf:"categories" yaml:"categories"`
}

// Dictionary names used by the extractor.
const (
	DictTrack     = "track"
	DictGrade     = "grade"
	DictChallenge = "challenge"
	DictProfile   = "profile"
)

// Dictionaries holds every keyword group the extractor uses.
type Dictionaries struct {
	Track     Dictionary `koanf:"track" yaml:"track"`
	Grade     Dictionary `koanf:"grade" yaml:"grade"`
	Challenge Dictionary `koanf:"challenge" yaml:"challenge"`
	Profile   Dictionary `koanf:"profile" yaml:"profile"`
}

// DefaultDictionaries returns the production keyword groups.
func DefaultDictionaries() Dictionaries {
	return Dictionaries{
		Track: Dictionary{
			Name:     DictTrack,
			Sentinel: "general",
			Categories: []Category{
				{Label: "stem", Synonyms: []string{"stem", "engineering", "computer science", "coding", "robotics", "mathematics", "physics"}},
				{Label: "medicine", Synonyms: []string{"pre-med", "premed", "medicine", "biology", "healthcare", "bs/md"}},
				{Label: "business", Synonyms: []string{"business", "economics", "entrepreneur", "finance"}},
				{Label: "humanities", Synonyms: []string{"humanities", "history", "literature", "philosophy", "debate"}},
				{Label: "arts", Synonyms: []string{"fine arts", "music", "design portfolio", "film", "theater", "theatre"}},
			},
		},
		Grade: Dictionary{
			Name:     DictGrade,
			Sentinel: "unknown",
			Categories: []Category{
				{Label: "grade-8", Synonyms: []string{"8th grade", "grade 8", "middle school"}},
				{Label: "grade-9", Synonyms: []string{"9th grade", "grade 9", "freshman"}},
				{Label: "grade-10", Synonyms: []string{"10th grade", "grade 10", "sophomore"}},
				{Label: "grade-11", Synonyms: []string{"11th grade", "grade 11", "junior"}},
				{Label: "grade-12", Synonyms: []string{"12th grade", "grade 12", "senior"}},
			},
		},
		Challenge: Dictionary{
			Name:     DictChallenge,
			Sentinel: "general",
			Categories: []Category{
				{Label: "essays", Synonyms: []string{"essay", "personal statement", "supplement", "common app"}},
				{Label: "test-prep", Synonyms: []string{"sat prep", "act prep", "test prep", "sat score", "act score", "psat"}},
				{Label: "college-list", Synonyms: []string{"college list", "school list", "target school", "reach school", "safety school"}},
				{Label: "time-management", Synonyms: []string{"time management", "schedule", "deadline", "procrastinat"}},
				{Label: "motivation", Synonyms: []string{"motivation", "burnout", "confidence", "mindset"}},
				{Label: "extracurriculars", Synonyms: []string{"extracurricular", "leadership", "internship", "summer program", "research project"}},
				{Label: "parent-communication", Synonyms: []string{"parent", "family", "mom", "dad", "guardian"}},
				{Label: "interviews", Synonyms: []string{"interview", "mock interview"}},
				{Label: "financial-aid", Synonyms: []string{"financial aid", "scholarship", "fafsa", "css profile"}},
			},
		},
		Profile: Dictionary{
			Name:     DictProfile,
			Sentinel: "standard",
			Categories: []Category{
				{Label: "struggling", Synonyms: []string{"struggl", "at risk", "at-risk", "crisis", "falling behind", "behind schedule"}},
				{Label: "high-achiever", Synonyms: []string{"high achiever", "ivy", "top 20", "valedictorian", "olympiad"}},
				{Label: "international", Synonyms: []string{"international", "toefl", "ielts", "visa"}},
				{Label: "first-gen", Synonyms: []string{"first gen", "first-gen", "first generation"}},
			},
		},
	}
}

// ordered returns the dictionaries in evaluation order.
func (d Dictionaries) ordered() []Dictionary {
	return []Dictionary{d.Track, d.Grade, d.Challenge, d.Profile}
}
