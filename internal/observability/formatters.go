// Package observability renders indexer results as human-readable CLI output.
package observability

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jonathan/session-indexer/internal/archive"
	"github.com/jonathan/session-indexer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxErrorsToShow caps the error rows printed for a report
	maxErrorsToShow = 10
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printTable(headers []string, rows [][]string, aligns []columnAlignment) {
	fmt.Fprintln(p.out, renderTable(headers, rows, aligns))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOf(rec *types.SessionRecord) string {
	if rec.SessionDate == nil {
		return "-"
	}
	return rec.SessionDate.Format("2006-01-02")
}

func displayName(rec *types.SessionRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	return orDash(rec.Filename)
}

// PrintSessionRecord outputs the enriched facts of one record.
func (p *Printer) PrintSessionRecord(rec *types.SessionRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:         %s\n", rec.ExternalID)
	fmt.Fprintf(&sb, "Coach:      %s\n", orDash(rec.Coach()))
	fmt.Fprintf(&sb, "Student:    %s\n", orDash(rec.Student()))
	if rec.SessionWeek != nil {
		fmt.Fprintf(&sb, "Week:       %d\n", *rec.SessionWeek)
	}
	fmt.Fprintf(&sb, "Date:       %s\n", dateOf(rec))
	if rec.DataSourceTag != nil {
		fmt.Fprintf(&sb, "Source:     %s\n", *rec.DataSourceTag)
	}
	fmt.Fprintf(&sb, "Type:       %s (priority %d)\n", rec.SessionType, rec.Priority)
	fmt.Fprintf(&sb, "Required:   %t\n", rec.RequiredForOnboarding)
	fmt.Fprintf(&sb, "Critical:   %t\n", rec.IsCriticalArtifact)
	fmt.Fprintf(&sb, "Confidence: %s", rec.Confidence)
	if rec.PositionalGuess {
		sb.WriteString(" (positional guess)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Profile:    %s / %s / %s\n", rec.StudentProfile.Grade, rec.StudentProfile.Track, rec.StudentProfile.Profile)
	if len(rec.Topics) > 0 {
		fmt.Fprintf(&sb, "Topics:     %s\n", strings.Join(rec.Topics, ", "))
	}
	if len(rec.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags:       %s\n", strings.Join(rec.Tags, ", "))
	}

	p.printBox("SESSION RECORD", sb.String())
}

// PrintRecommendations outputs one table per non-empty bucket.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRecommendations(set *types.RecommendationSet) {
	if set == nil {
		return
	}

	p.printBox("RECOMMENDATIONS", fmt.Sprintf("Considered:  %d\nBelow floor: %d", set.Considered, set.BelowFloor))

	for _, bucket := range set.Buckets {
		if len(bucket.Candidates) == 0 {
			continue
		}
		fmt.Fprintf(p.out, "\n%s\n", strings.ToUpper(strings.ReplaceAll(string(bucket.Name), "_", " ")))

		rows := make([][]string, 0, len(bucket.Candidates))
		for i := range bucket.Candidates {
			c := &bucket.Candidates[i]
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%.2f", c.Score),
				displayName(&c.Record),
				string(c.Record.SessionType),
				orDash(c.Record.Coach()),
				dateOf(&c.Record),
				strings.Join(c.Reasons, "; "),
			})
		}
		p.printTable(
			[]string{"#", "Score", "Session", "Type", "Coach", "Date", "Why"},
			rows,
			[]columnAlignment{alignRight, alignRight},
		)
		if bucket.Overflow > 0 {
			fmt.Fprintf(p.out, "  ... and %d more\n", bucket.Overflow)
		}
	}
}

// PrintCriticalSessions outputs a student's onboarding-relevant sessions and coverage.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCriticalSessions(cs *types.CriticalSessions) {
	if cs == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Student:     %s\n", cs.Student)
	fmt.Fprintf(&sb, "Total:       %d\n", cs.Stats.Total)
	fmt.Fprintf(&sb, "Game plan:   %t\n", cs.Stats.HasGamePlan)
	fmt.Fprintf(&sb, "Hour 168:    %t\n", cs.Stats.HasHour168)
	if len(cs.Stats.MissingRequired) > 0 {
		missing := make([]string, len(cs.Stats.MissingRequired))
		for i, st := range cs.Stats.MissingRequired {
			missing[i] = string(st)
		}
		fmt.Fprintf(&sb, "Missing:     %s\n", strings.Join(missing, ", "))
	}
	p.printBox("CRITICAL SESSIONS", sb.String())

	groups := []struct {
		label   string
		records []types.SessionRecord
	}{
		{"Game plan", cs.GamePlan},
		{"Hour 168", cs.Hour168},
		{"Execution", cs.ExecutionExamples},
		{"Parent", cs.ParentSessions},
		{"Milestone", cs.Milestones},
	}
	var rows [][]string
	for _, g := range groups {
		for i := range g.records {
			rec := &g.records[i]
			rows = append(rows, []string{g.label, displayName(rec), orDash(rec.Coach()), dateOf(rec)})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.out, "No critical sessions found.")
		return
	}
	p.printTable([]string{"Group", "Session", "Coach", "Date"}, rows, nil)
}

// PrintReindexReport outputs run totals, per-type counts and the first errors.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReindexReport(r *types.ReindexReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:        %s\n", r.RunID)
	if r.DryRun {
		sb.WriteString("Mode:       dry run\n")
	} else {
		fmt.Fprintf(&sb, "Backup:     %s\n", orDash(r.BackupNamespace))
	}
	fmt.Fprintf(&sb, "Duration:   %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&sb, "Batches:    %d\n", r.Batches)
	fmt.Fprintf(&sb, "Processed:  %d\n", r.Processed)
	fmt.Fprintf(&sb, "Updated:    %d\n", r.Updated)
	fmt.Fprintf(&sb, "Unchanged:  %d\n", r.Unchanged)
	fmt.Fprintf(&sb, "Errors:     %d\n", len(r.Errors))
	if r.Cancelled {
		sb.WriteString("Status:     cancelled\n")
	}
	p.printBox("REINDEX REPORT", sb.String())

	if len(r.ByType) > 0 {
		keys := make([]string, 0, len(r.ByType))
		for st := range r.ByType {
			keys = append(keys, string(st))
		}
		slices.Sort(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, strconv.Itoa(r.ByType[types.SessionType(k)])})
		}
		p.printTable([]string{"Session type", "Records"}, rows, []columnAlignment{alignLeft, alignRight})
	}

	if len(r.ByCategory) > 0 {
		p.printTable([]string{"Track", "Records"}, countRows(r.ByCategory), []columnAlignment{alignLeft, alignRight})
	}

	p.printErrors(r.Errors)
}

// PrintIngestReport outputs archive ingest totals and the first errors.
func (p *Printer) PrintIngestReport(r *archive.IngestReport) {
	if r == nil {
		return
	}
	p.printTable([]string{"Listed", "Skipped", "Created", "Updated", "Unchanged", "Errors"}, [][]string{{
		strconv.Itoa(r.Listed),
		strconv.Itoa(r.Skipped),
		strconv.Itoa(r.Created),
		strconv.Itoa(r.Updated),
		strconv.Itoa(r.Unchanged),
		strconv.Itoa(len(r.Errors)),
	}}, []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
	p.printErrors(r.Errors)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printErrors(errs []types.RecordError) {
	if len(errs) == 0 {
		return
	}
	count := min(len(errs), maxErrorsToShow)
	rows := make([][]string, 0, count)
	for _, e := range errs[:count] {
		rows = append(rows, []string{e.ExternalID, e.Stage, e.Message})
	}
	p.printTable([]string{"Record", "Stage", "Error"}, rows, nil)
	if len(errs) > maxErrorsToShow {
		fmt.Fprintf(p.out, "  ... and %d more\n", len(errs)-maxErrorsToShow)
	}
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}
