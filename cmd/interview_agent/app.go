package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/fetch"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/redisstore"
	"github.com/jonathan/interview-coach/internal/sqlitestore"
	"github.com/jonathan/interview-coach/internal/stages"
)

// backend is an opened conversation store plus its optional capabilities.
type backend struct {
	store  conversation.Store
	lister  conversation.Lister
	deleter conversation.Deleter
	ping   func(context.Context) error
	close  func()
}

// openBackend opens the store selected by cfg.Driver.
func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		mem := conversation.NewMemoryStore()
		return &backend{store: mem, lister: mem, deleter: mem, close: func() {}}, nil

	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return &backend{store: database, lister: database, deleter: database, ping: database.Ping, close: database.Close}, nil

	case config.DriverRedis:
		rs, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL.D(),
		})
		if err != nil {
			return nil, err
		}
		return &backend{store: rs, lister: rs, deleter: rs, ping: rs.Ping, close: func() { _ = rs.Close() }}, nil

	case config.DriverSQLite:
		ss, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{store: ss, lister: ss, deleter: ss, ping: ss.Ping, close: func() { _ = ss.Close() }}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// app holds everything a command needs to run turns.
type app struct {
	cfg        *config.Config
	backend    *backend
	client     llm.Client
	controller *conversation.Controller
	metrics    *metrics.PrometheusRecorder
}

// newApp wires the configured store, LLM client, stages and controller.
// A nil client is created from cfg.LLM.
func newApp(ctx context.Context, cfg *config.Config, client llm.Client) (*app, error) {
	if client == nil {
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("an LLM API key is required: set LLM_API_KEY or the provider-specific key")
		}
		llmCfg, err := cfg.LLMClientConfig()
		if err != nil {
			return nil, err
		}
		client, err = llm.NewClient(ctx, llmCfg, cfg.LLM.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())

	controller, err := conversation.New(be.store,
		conversation.WithStages(buildStages(cfg, client, recorder)...),
		conversation.WithMetrics(recorder),
		conversation.WithMaxConcurrentTurns(cfg.Interview.MaxConcurrentTurns),
	)
	if err != nil {
		be.close()
		_ = client.Close()
		return nil, err
	}

	log.Info().
		Str("store", cfg.Store.Driver).
		Str("provider", cfg.LLM.Provider).
		Str("model", client.GetModel(llm.TierStandard)).
		Bool("job_fetch", !cfg.Interview.DisableJobFetch).
		Msg("interview coach ready")

	return &app{cfg: cfg, backend: be, client: client, controller: controller, metrics: recorder}, nil
}

// buildStages builds intake, interview and evaluation on one shared generator.
func buildStages(cfg *config.Config, client llm.Client, recorder metrics.Recorder) []stages.Stage {
	gen := stages.NewGenerator(client)
	gen.Timeout = cfg.LLM.Timeout.D()
	gen.Metrics = recorder
	if tc, err := llm.NewTokenCounter(); err != nil {
		log.Warn().Err(err).Msg("token counter unavailable, falling back to estimates")
	} else {
		gen.Tokens = tc
	}

	var intakeOpts []stages.IntakeOption
	if !cfg.Interview.DisableJobFetch {
		fetcher := fetch.NewCachedFetcher(fetch.NewJobPostingFetcher(nil), cfg.Interview.FetchCacheTTL.D(), 0)
		intakeOpts = append(intakeOpts,
			stages.WithJobPostingFetcher(fetcher, cfg.Interview.MaxFetchURLs, cfg.Interview.MaxPostingRunes))
	}

	return []stages.Stage{
		stages.NewIntakeStage(gen, intakeOpts...),
		stages.NewInterviewStage(gen),
		stages.NewEvaluationStage(gen, cfg.Interview.ScorecardMinText, cfg.Interview.EvaluationAttempts),
	}
}

// Close releases the store and the LLM client.
func (a *app) Close() {
	a.backend.close()
	if err := a.client.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LLM client")
	}
}
