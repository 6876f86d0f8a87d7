package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/interview-coach/internal/types"
)

func TestPrintScorecard(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScorecard(&types.Scorecard{
		CommunicationScore:       7,
		TechnicalCompetencyScore: 4,
		BehaviouralFitScore:      8,
		OverallScore:             6,
		Strengths:                strings.Repeat("Clear structure and concrete examples. ", 4),
		AreasOfImprovement:       "Go deeper on tradeoffs when discussing the caching layer design.",
	})
	output := buf.String()

	assert.Contains(t, output, "INTERVIEW SCORECARD")
	assert.Contains(t, output, "Communication")
	assert.Contains(t, output, " 7/10")
	assert.Contains(t, output, "███████░░░")
	assert.Contains(t, output, "Strengths:")
	assert.Contains(t, output, "tradeoffs")
	assert.NotContains(t, output, "...", "feedback is wrapped, not truncated")
}

func TestPrintScorecard_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintScorecard(nil)
	assert.Empty(t, buf.String())
}

func TestPrintContext(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	state := types.NewConversationState("t1", time.Now())
	p.PrintContext(state)
	assert.Empty(t, buf.String(), "nothing to show before intake completes")

	state.InterviewType = types.InterviewTechnical
	state.CompanyDescription = "Acme builds logistics software."
	state.JobDescription = strings.Repeat("Backend engineer owning payment services. ", 10)
	p.PrintContext(state)
	output := buf.String()

	assert.Contains(t, output, "INTERVIEW CONTEXT")
	assert.Contains(t, output, "Technical")
	assert.Contains(t, output, "Acme builds logistics software.")
	assert.Contains(t, output, "...", "long descriptions are truncated")
}

func TestPrintStageChange(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStageChange(types.StageIntake, types.StageIntake)
	assert.Empty(t, buf.String())

	p.PrintStageChange(types.StageIntake, types.StageInterview)
	assert.Contains(t, buf.String(), "intake → interview")
}

func TestPrintThreads(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintThreads(nil)
	assert.Contains(t, buf.String(), "No threads found")

	buf.Reset()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var threads []types.ThreadSummary
	for i := 0; i < 7; i++ {
		threads = append(threads, types.ThreadSummary{
			ThreadID:  "thread_" + strings.Repeat("x", i+1),
			Stage:     types.StageInterview,
			Version:   int64(i + 1),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	p.PrintThreads(threads)
	output := buf.String()

	assert.Contains(t, output, "THREADS (7)")
	assert.Contains(t, output, "2025-03-01 09:00")
	assert.Contains(t, output, "... and 2 more")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("é", 200))
	output := buf.String()

	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	for _, line := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), "every line has the same visible width")
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("one two three four five", 9)
	assert.Equal(t, []string{"one two", "three", "four five"}, lines)
	assert.Nil(t, wrap("   ", 10))
}
