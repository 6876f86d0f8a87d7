// Package observability provides formatted output utilities for the interactive CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/interview-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxContextRunes bounds how much of a job or company description is shown
	maxContextRunes = 160
)

// Printer handles formatted output for the chat and threads commands
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
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if utf8.RuneCountInString(line) > inner {
			line = string([]rune(line)[:inner-3]) + "..."
		}
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to width runes. %-*s counts bytes, not runes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && utf8.RuneCountInString(line.String())+1+utf8.RuneCountInString(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// scoreBar renders a 1-10 score as a fixed-width bar.
func scoreBar(score int) string {
	score = max(0, min(score, 10))
	return strings.Repeat("█", score) + strings.Repeat("░", 10-score)
}

// PrintScorecard outputs the final evaluation with score bars and wrapped feedback.
func (p *Printer) PrintScorecard(card *types.Scorecard) {
	if card == nil {
		return
	}

	var sb strings.Builder
	rows := []struct {
		label string
		score int
	}{
		{"Communication", card.CommunicationScore},
		{"Technical", card.TechnicalCompetencyScore},
		{"Behavioural fit", card.BehaviouralFitScore},
		{"Overall", card.OverallScore},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-16s %s %2d/10\n", r.label, scoreBar(r.score), r.score))
	}

	sb.WriteString("\nStrengths:\n")
	for _, line := range wrap(card.Strengths, boxWidth-6) {
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("\nAreas of improvement:\n")
	for _, line := range wrap(card.AreasOfImprovement, boxWidth-6) {
		sb.WriteString("  " + line + "\n")
	}

	p.printBox("INTERVIEW SCORECARD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintContext outputs the interview context gathered during intake.
func (p *Printer) PrintContext(state *types.ConversationState) {
	if state == nil || !state.HasContext() {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Type:     %s\n", state.InterviewType))
	sb.WriteString("\nCompany:\n")
	for _, line := range wrap(truncate(state.CompanyDescription, maxContextRunes), boxWidth-6) {
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("\nJob:\n")
	for _, line := range wrap(truncate(state.JobDescription, maxContextRunes), boxWidth-6) {
		sb.WriteString("  " + line + "\n")
	}

	p.printBox("INTERVIEW CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageChange announces a stage transition within a turn.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStageChange(from, to types.Stage) {
	if from == to || from == "" {
		return
	}
	fmt.Fprintf(p.out, "── stage: %s → %s ──\n", from, to)
}

// PrintThreads outputs a list of thread summaries, newest first.
func (p *Printer) PrintThreads(threads []types.ThreadSummary) {
	if len(threads) == 0 {
		p.printBox("THREADS", "No threads found")
		return
	}

	var sb strings.Builder
	count := min(len(threads), maxItemsToShow)
	for _, t := range threads[:count] {
		sb.WriteString(fmt.Sprintf("%-12s v%-3d %s\n", t.Stage, t.Version, t.UpdatedAt.Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("  %s\n", t.ThreadID))
	}
	if len(threads) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(threads)-maxItemsToShow))
	}

	p.printBox(fmt.Sprintf("THREADS (%d)", len(threads)), strings.TrimSuffix(sb.String(), "\n"))
}
