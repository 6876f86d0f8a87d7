package stages

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/types"
)

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 60 * time.Second

// Generator is the structured-generation collaborator shared by all stages.
type Generator struct {
	Client  llm.Client
	Timeout time.Duration
	Tokens  *llm.TokenCounter
	Metrics metrics.Recorder
}

// NewGenerator returns a Generator with default timeout and no metrics.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{Client: client, Timeout: DefaultGenerationTimeout, Metrics: metrics.Noop{}}
}

// generate renders the stage prompt and runs one schema-validated generation into out.
func (g *Generator) generate(ctx context.Context, stage types.Stage, promptKey string, data map[string]string,
	schema string, tier llm.ModelTier, out any) error {
	prompt, err := prompts.Render(prompts.InterviewFile, promptKey, data)
	if err != nil {
		return &GenerationError{Stage: stage, Message: "failed to render prompt", Cause: err}
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	tokens := g.Tokens.Count(prompt)
	start := time.Now()
	err = llm.GenerateStructured(ctx, g.Client, llm.StructuredRequest{Prompt: prompt, Schema: schema, Tier: tier}, out)
	elapsed := time.Since(start)
	metrics.OrNoop(g.Metrics).ObserveGeneration(stage, tokens, err == nil, elapsed)

	log.Debug().
		Str("stage", string(stage)).
		Str("model", g.Client.GetModel(tier)).
		Int("prompt_tokens", tokens).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("generation finished")

	if err != nil {
		return &GenerationError{Stage: stage, Message: "structured generation failed", Transient: isTransient(err), Cause: err}
	}
	return nil
}

// isTransient reports whether retrying the same turn may succeed.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sErr *llm.StructuredError
	if errors.As(err, &sErr) {
		return sErr.Kind == llm.KindCall
	}
	return false
}

func contextData(state *types.ConversationState, transcript string) map[string]string {
	return map[string]string{
		"Messages":           transcript,
		"JobDescription":     state.JobDescription,
		"CompanyDescription": state.CompanyDescription,
		"InterviewType":      string(state.InterviewType),
	}
}
