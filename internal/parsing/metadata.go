// Package parsing extracts structured session facts (coach, student, week, date,
// data-source code) from loosely named archive artifacts.
//
// Sources are consulted in strict precedence order: folder path, then filename
// tokens, then the free-text title. The first source to fill a field wins, while
// the reported confidence is the strongest level any contributing source earned.
// Parsing never fails; ambiguous input yields a partial, low-confidence result.
package parsing

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/session-indexer/internal/types"
)

const (
	minWeek = 1
	maxWeek = 60
)

var (
	// weekPattern matches Wk3, wk_3, Week4, "Week 4" with non-alphanumeric boundaries
	weekPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:wk|week)[\s_-]*(\d{1,2})(?:$|[^0-9])`)
	// datePattern matches ISO-like YYYY-MM-DD dates not embedded in longer digit runs
	datePattern = regexp.MustCompile(`(?:^|[^0-9])(\d{4}-\d{2}-\d{2})(?:$|[^0-9])`)
	// tokenSplit separates filename tokens
	tokenSplit = regexp.MustCompile(`[_\-\s.]+`)
	// titlePair matches a leading "Name1 & Name2"
	titlePair = regexp.MustCompile(`^\s*(\p{L}[\p{L}'.]*)\s*&\s*(\p{L}[\p{L}'.]*)`)
)

// Input holds the raw textual surfaces of an artifact. All fields are optional.
type Input struct {
	Filename   string
	FolderPath string
	Title      string
}

// Result is the outcome of parsing an artifact.
type Result struct {
	Coach         *string
	Student       *string
	Week          *int
	Date          *time.Time
	DataSourceTag *string
	Confidence    types.Confidence
	// PositionalGuess is set when a name came from the title fallback that
	// assumes the first name of "Name1 & Name2" is the coach.
	PositionalGuess bool
}

// Empty reports whether no field was extracted.
func (r *Result) Empty() bool {
	return r.Coach == nil && r.Student == nil && r.Week == nil && r.Date == nil && r.DataSourceTag == nil
}

// Parser extracts session metadata using a fixed vocabulary.
type Parser struct {
	coaches          nameIndex
	students         nameIndex
	codes            map[string]struct{}
	criticalSynonyms []string
	codeConjunctions []*regexp.Regexp
}

// NewParser builds a parser over the given vocabulary.
func NewParser(vocab Vocabulary) *Parser {
	codes := make(map[string]struct{}, len(vocab.DataSourceCodes))
	quoted := make([]string, 0, len(vocab.DataSourceCodes))
	for _, code := range vocab.DataSourceCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 1 {
			continue
		}
		codes[code] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(code))
	}

	synonyms := make([]string, 0, len(vocab.CriticalSynonyms))
	for _, s := range vocab.CriticalSynonyms {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			synonyms = append(synonyms, s)
		}
	}

	p := &Parser{
		coaches:          newNameIndex(vocab.Coaches),
		students:         newNameIndex(vocab.Students),
		codes:            codes,
		criticalSynonyms: synonyms,
	}

	if len(quoted) > 0 {
		alt := strings.Join(quoted, "|")
		p.codeConjunctions = []*regexp.Regexp{
			regexp.MustCompile(`(?:^|\s)(` + alt + `)\s*&\s*`),
			regexp.MustCompile(`\s*&\s*(` + alt + `)(?:\s|$)`),
		}
	}

	return p
}

// accumulator applies first-source-wins per field and tracks the strongest evidence.
type accumulator struct {
	res         Result
	contributed bool
	// named is set once a name was resolved by anything stronger than a guess.
	named bool
}

func (a *accumulator) credit(level types.Confidence) {
	if !a.contributed {
		a.res.Confidence = level
		a.contributed = true
		return
	}
	a.res.Confidence = a.res.Confidence.Max(level)
}

func (a *accumulator) setCoach(name string, level types.Confidence) bool {
	if a.res.Coach != nil || name == "" {
		return false
	}
	a.res.Coach = &name
	a.credit(level)
	a.named = a.named || level != types.ConfidenceLow
	return true
}

func (a *accumulator) setStudent(name string, level types.Confidence) bool {
	if a.res.Student != nil || name == "" {
		return false
	}
	a.res.Student = &name
	a.credit(level)
	a.named = a.named || level != types.ConfidenceLow
	return true
}

func (a *accumulator) setWeek(week int, level types.Confidence) {
	if a.res.Week != nil {
		return
	}
	a.res.Week = &week
	a.credit(level)
}

func (a *accumulator) setDate(date time.Time, level types.Confidence) {
	if a.res.Date != nil {
		return
	}
	a.res.Date = &date
	a.credit(level)
}

func (a *accumulator) setDataSourceTag(code string, level types.Confidence) {
	if a.res.DataSourceTag != nil {
		return
	}
	a.res.DataSourceTag = &code
	a.credit(level)
}

// Parse extracts metadata from the input surfaces. It is a pure function of its input.
func (p *Parser) Parse(in Input) Result {
	acc := &accumulator{}

	p.parseFolder(in.FolderPath, acc)
	p.parseFilename(in.Filename, acc)
	p.parseTitle(in.Title, acc)

	if !acc.contributed {
		return Result{Confidence: types.ConfidenceLow}
	}
	if acc.res.PositionalGuess && !acc.named {
		acc.res.Confidence = types.ConfidenceLow
	}
	return acc.res
}

// parseFolder extracts names from /Students/<Name>/ and /Coaches/<Name>/ segments.
func (p *Parser) parseFolder(path string, acc *accumulator) {
	if strings.TrimSpace(path) == "" {
		return
	}

	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	for i := 0; i < len(segments)-1; i++ {
		switch strings.ToLower(strings.TrimSpace(segments[i])) {
		case "students":
			acc.setStudent(folderName(segments[i+1], p.students), types.ConfidenceHigh)
		case "coaches":
			acc.setCoach(folderName(segments[i+1], p.coaches), types.ConfidenceHigh)
		}
	}

	// Only a named Students/Coaches folder earns high; week and date folders are weak evidence.
	for _, segment := range segments {
		if week, ok := findWeek(segment); ok {
			acc.setWeek(week, types.ConfidenceLow)
		}
		if date, ok := findDate(segment); ok {
			acc.setDate(date, types.ConfidenceLow)
		}
	}
}

// folderName resolves a folder segment ("arshiya_sharma") to a known name when any
// of its tokens matches, otherwise to the normalized full segment.
func folderName(segment string, idx nameIndex) string {
	tokens := tokenSplit.Split(strings.TrimSpace(segment), -1)
	for _, token := range tokens {
		if canonical, ok := idx.lookup(token); ok {
			return canonical
		}
	}
	return NormalizeName(strings.Join(tokens, " "))
}

// parseFilename scans filename tokens against the known-name lists.
func (p *Parser) parseFilename(filename string, acc *accumulator) {
	base := stripExtension(filepath.Base(strings.TrimSpace(filename)))
	if base == "" || base == "." {
		return
	}

	if date, loc, ok := findDateSpan(base); ok {
		acc.setDate(date, types.ConfidenceLow)
		base = base[:loc[0]] + " " + base[loc[1]:]
	}
	if week, loc, ok := findWeekSpan(base); ok {
		acc.setWeek(week, types.ConfidenceLow)
		base = base[:loc[0]] + " " + base[loc[1]:]
	}

	for _, token := range tokenSplit.Split(base, -1) {
		if token == "" {
			continue
		}
		if _, isCode := p.codes[token]; isCode {
			acc.setDataSourceTag(token, types.ConfidenceLow)
			continue
		}
		if canonical, ok := p.coaches.lookup(token); ok && acc.res.Coach == nil {
			acc.setCoach(canonical, types.ConfidenceMedium)
			continue
		}
		if canonical, ok := p.students.lookup(token); ok {
			acc.setStudent(canonical, types.ConfidenceMedium)
		}
	}
}

// parseTitle matches a leading "Name1 & Name2" and resolves which side is the coach.
func (p *Parser) parseTitle(title string, acc *accumulator) {
	if strings.TrimSpace(title) == "" {
		return
	}

	if week, ok := findWeek(title); ok {
		acc.setWeek(week, types.ConfidenceLow)
	}
	if date, ok := findDate(title); ok {
		acc.setDate(date, types.ConfidenceLow)
	}

	cleaned := title
	for _, re := range p.codeConjunctions {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			acc.setDataSourceTag(m[1], types.ConfidenceLow)
		}
		cleaned = re.ReplaceAllString(cleaned, " ")
	}

	m := titlePair.FindStringSubmatch(cleaned)
	if m == nil {
		return
	}
	left, right := NormalizeName(m[1]), NormalizeName(m[2])

	leftCoach, leftIsCoach := p.coaches.lookup(left)
	rightCoach, rightIsCoach := p.coaches.lookup(right)
	leftStudent, leftIsStudent := p.students.lookup(left)
	rightStudent, rightIsStudent := p.students.lookup(right)

	var coach, student string
	level := types.ConfidenceMedium
	positional := false

	switch {
	case leftIsCoach && !rightIsCoach:
		coach, student = leftCoach, right
		if rightIsStudent {
			student = rightStudent
		}
	case rightIsCoach && !leftIsCoach:
		coach, student = rightCoach, left
		if leftIsStudent {
			student = leftStudent
		}
	case leftIsStudent && !rightIsStudent:
		coach, student = right, leftStudent
	case rightIsStudent && !leftIsStudent:
		coach, student = left, rightStudent
	default:
		// Neither side resolves unambiguously: assume coach-first.
		coach, student = left, right
		level = types.ConfidenceLow
		positional = true
	}

	setCoach := acc.setCoach(coach, level)
	setStudent := acc.setStudent(student, level)
	if positional && (setCoach || setStudent) {
		acc.res.PositionalGuess = true
	}
}

// IsCriticalArtifact reports whether any surface mentions a critical-artifact synonym.
// It is independent of name extraction and confidence.
func (p *Parser) IsCriticalArtifact(surfaces ...string) bool {
	for _, surface := range surfaces {
		lower := strings.ToLower(surface)
		if lower == "" {
			continue
		}
		for _, synonym := range p.criticalSynonyms {
			if strings.Contains(lower, synonym) {
				return true
			}
		}
	}
	return false
}

func findWeek(s string) (int, bool) {
	week, _, ok := findWeekSpan(s)
	return week, ok
}

func findWeekSpan(s string) (int, []int, bool) {
	loc := weekPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return 0, nil, false
	}
	week, err := strconv.Atoi(s[loc[2]:loc[3]])
	if err != nil || week < minWeek || week > maxWeek {
		return 0, nil, false
	}
	return week, []int{loc[0], loc[1]}, true
}

func findDate(s string) (time.Time, bool) {
	date, _, ok := findDateSpan(s)
	return date, ok
}

func findDateSpan(s string) (time.Time, []int, bool) {
	loc := datePattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return time.Time{}, nil, false
	}
	date, err := time.Parse("2006-01-02", s[loc[2]:loc[3]])
	if err != nil {
		return time.Time{}, nil, false
	}
	return date.UTC(), []int{loc[2], loc[3]}, true
}

// stripExtension removes a short trailing file extension such as ".mp4".
func stripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) > 6 {
		return name
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return name
		}
	}
	return strings.TrimSuffix(name, ext)
}
