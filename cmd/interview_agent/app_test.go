package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/llm/llmtest"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/types"
)

const (
	readyJSON = `{"interview_type":"Technical","company_description":"Acme builds logistics software","job_description":"Backend engineer",
		"need_clarification":false,"question":"","verification":"Got it: a technical interview at Acme for a backend engineer."}`
	firstQuestion = `{"question":"Tell me about a backend system you built.","end_interview":false}`
	nextQuestion  = `{"question":"How did you test it?","end_interview":false}`
)

var feedback = strings.Repeat("Concrete examples, but the answers stayed shallow on tradeoffs. ", 2)

func scorecardJSON() string {
	return fmt.Sprintf(`{"communication_score":6,"technical_competency_score":4,"behavioural_fit_score":7,
		"overall_score":5,"strengths":%q,"areas_of_improvement":%q}`, feedback, feedback)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Interview.DisableJobFetch = true
	return &cfg
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, setupLogging(&buf, "debug", "json"))
	require.NoError(t, setupLogging(&buf, "INFO", "console"))
	assert.Error(t, setupLogging(&buf, "loud", "json"))
	assert.Error(t, setupLogging(&buf, "info", "xml"))
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	mem, err := openBackend(ctx, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.NotNil(t, mem.lister)
	assert.Nil(t, mem.ping)
	mem.close()

	sq, err := openBackend(ctx, config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "threads.db")})
	require.NoError(t, err)
	require.NotNil(t, sq.ping)
	assert.NoError(t, sq.ping(ctx))
	sq.close()

	_, err = openBackend(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestDeleteThread(t *testing.T) {
	ctx := context.Background()
	be, err := openBackend(ctx, config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "threads.db")})
	require.NoError(t, err)
	defer be.close()

	state := types.NewConversationState("thread_jane@example.com", time.Now())
	state.AppendMessage(types.RoleUser, "hello", time.Now())
	require.NoError(t, be.store.Save(ctx, state, 0))

	var out bytes.Buffer
	require.NoError(t, deleteThread(ctx, be, &out, "thread_jane@example.com"))
	assert.Contains(t, out.String(), "deleted thread_jane@example.com (stage intake, 1 messages)")

	loaded, err := be.store.Load(ctx, "thread_jane@example.com")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	err = deleteThread(ctx, be, &out, "thread_jane@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.APIKey = ""
	_, err := newApp(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestServerConfig(t *testing.T) {
	cfg := testConfig()
	a, err := newApp(context.Background(), cfg, llmtest.NewScriptedClient())
	require.NoError(t, err)
	defer a.Close()

	srvCfg, err := serverConfig(cfg, a)
	require.NoError(t, err)
	assert.Equal(t, 8080, srvCfg.Port)
	assert.Nil(t, srvCfg.Auth)
	assert.NotNil(t, srvCfg.Lister)
	assert.NotNil(t, srvCfg.Metrics)

	cfg.Auth = config.AuthConfig{Enabled: true, Required: true, Secret: "0123456789abcdef"}
	srvCfg, err = serverConfig(cfg, a)
	require.NoError(t, err)
	require.NotNil(t, srvCfg.Auth)
	assert.True(t, srvCfg.Auth.Required)

	cfg.Auth.Secret = "short"
	_, err = serverConfig(cfg, a)
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("JWT_ISSUER", "interview-coach")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runToken(cmd, []string{"jane@example.com"}))

	jwtCfg, err := config.AuthConfig{Secret: "0123456789abcdef", Issuer: "interview-coach"}.JWT()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtCfg).ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Identity())
}

func newChat(t *testing.T, client *llmtest.ScriptedClient, input string) (*chatSession, *bytes.Buffer, *app) {
	t.Helper()
	color.NoColor = true

	a, err := newApp(context.Background(), testConfig(), client)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	var out bytes.Buffer
	return &chatSession{
		controller: a.controller,
		threadID:   "thread_cli",
		in:         strings.NewReader(input),
		out:        &out,
		verbose:    true,
	}, &out, a
}

func TestChatSession_FullInterview(t *testing.T) {
	client := llmtest.NewScriptedClient().
		PushJSON(llmtest.IntakeTitle, readyJSON).
		PushJSON(llmtest.InterviewTitle, firstQuestion, nextQuestion).
		PushJSON(llmtest.ScorecardTitle, scorecardJSON())
	session, out, a := newChat(t, client, "Technical interview at Acme for a backend engineer\n/status\n/end\n")

	require.NoError(t, session.run(context.Background()))
	output := out.String()

	assert.Contains(t, output, "Got it: a technical interview at Acme")
	assert.Contains(t, output, "Tell me about a backend system you built.")
	assert.Contains(t, output, "stage: intake → interview")
	assert.Contains(t, output, "INTERVIEW CONTEXT")
	assert.Contains(t, output, "INTERVIEW SCORECARD")
	assert.Contains(t, output, "interview complete")
	assert.NotContains(t, output, `"communication_score"`, "raw scorecard JSON is not echoed")

	state, err := a.controller.Thread(context.Background(), "thread_cli")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, types.StageDone, state.Stage)
	assert.Equal(t, 0, client.Remaining(llmtest.ScorecardTitle))
}

func TestChatSession_CommandsAndFailures(t *testing.T) {
	client := llmtest.NewScriptedClient().
		Push(llmtest.IntakeTitle, llmtest.Reply{Err: fmt.Errorf("provider unavailable")})
	session, out, _ := newChat(t, client, "\n/bogus\n/status\nhello\n/quit\nnever read\n")

	require.NoError(t, session.run(context.Background()))
	output := out.String()

	assert.Contains(t, output, "unknown command /bogus")
	assert.Contains(t, output, "no turns yet")
	assert.Contains(t, output, "turn failed")
	assert.Contains(t, output, "resume with --thread thread_cli")
}

func TestChatSession_EOF(t *testing.T) {
	session, out, _ := newChat(t, llmtest.NewScriptedClient(), "")
	require.NoError(t, session.run(context.Background()))
	assert.Contains(t, out.String(), "thread thread_cli")
}
