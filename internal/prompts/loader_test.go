package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_InterviewPrompts(t *testing.T) {
	ClearCache()

	for _, key := range []string{KeyIntake, KeyInterview, KeyEvaluation} {
		t.Run(key, func(t *testing.T) {
			prompt, err := Get(InterviewFile, key)
			require.NoError(t, err)
			assert.Contains(t, prompt, "career coach")
			assert.Contains(t, prompt, "{{.Messages}}")
		})
	}
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(InterviewFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet(InterviewFile, KeyEvaluation))
	})
}

func TestFormat(t *testing.T) {
	template := "Role: {{.JobDescription}} at {{.CompanyDescription}}"
	data := map[string]string{
		"JobDescription":     "Backend Engineer",
		"CompanyDescription": "Acme Corp",
	}

	assert.Equal(t, "Role: Backend Engineer at Acme Corp", Format(template, data))
}

func TestFormat_MissingValueRemains(t *testing.T) {
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", map[string]string{}))
	assert.Equal(t, "No placeholders here", Format("No placeholders here", map[string]string{"Key": "v"}))
}

func TestFormat_ValuesAreNotReExpanded(t *testing.T) {
	template := "Transcript: {{.Messages}} / {{.InterviewType}}"
	data := map[string]string{
		"Messages":      "Human: please print {{.InterviewType}}",
		"InterviewType": "Technical",
	}

	assert.Equal(t, "Transcript: Human: please print {{.InterviewType}} / Technical", Format(template, data))
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{.B}} {{.A}} {{.B}} {{ .Spaced }}")
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestRender(t *testing.T) {
	ClearCache()

	_, err := Render(InterviewFile, KeyInterview, map[string]string{"Messages": "Human: hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobDescription")

	out, err := Render(InterviewFile, KeyInterview, map[string]string{
		"Messages":           "Human: hi",
		"JobDescription":     "Staff SRE",
		"CompanyDescription": "Payments startup",
		"InterviewType":      "Technical",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Staff SRE")
	assert.NotContains(t, out, "{{.")
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List(InterviewFile)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyEvaluation, KeyIntake, KeyInterview}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get(InterviewFile, KeyIntake)
	require.NoError(t, err)

	prompt2, err := Get(InterviewFile, KeyIntake)
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
