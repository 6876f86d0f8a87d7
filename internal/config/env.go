package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/interview-coach/internal/llm"
)

// providerKeyEnv names the provider-specific API key variable.
var providerKeyEnv = map[llm.Provider]string{
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// ApplyEnv overrides fields from environment variables read through getenv.
// Unset or empty variables leave the current value alone; malformed values are errors.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var errs []string
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = Duration(d)
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = b
		}
	}

	num("PORT", &c.Server.Port)
	str("CORS_ALLOWED_ORIGIN", &c.Server.AllowedOrigin)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_MODEL_LITE", &c.LLM.Models.Lite)
	str("LLM_MODEL_STANDARD", &c.LLM.Models.Standard)
	str("LLM_MODEL_ADVANCED", &c.LLM.Models.Advanced)
	dur("LLM_TIMEOUT", &c.LLM.Timeout)
	str("LLM_API_KEY", &c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if p, err := llm.ParseProvider(c.LLM.Provider); err == nil {
			str(providerKeyEnv[p], &c.LLM.APIKey)
		}
	}

	str("STORE_DRIVER", &c.Store.Driver)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	num("REDIS_DB", &c.Store.RedisDB)
	dur("REDIS_TTL", &c.Store.RedisTTL)
	str("SQLITE_PATH", &c.Store.SQLitePath)

	num("SCORECARD_MIN_TEXT", &c.Interview.ScorecardMinText)
	num("EVALUATION_ATTEMPTS", &c.Interview.EvaluationAttempts)
	num("MAX_CONCURRENT_TURNS", &c.Interview.MaxConcurrentTurns)
	flag("DISABLE_JOB_FETCH", &c.Interview.DisableJobFetch)

	flag("AUTH_ENABLED", &c.Auth.Enabled)
	flag("AUTH_REQUIRED", &c.Auth.Required)
	str("JWT_SECRET", &c.Auth.Secret)
	str("JWT_ISSUER", &c.Auth.Issuer)
	num("JWT_EXPIRATION_HOURS", &c.Auth.ExpirationHours)

	if len(errs) > 0 {
		return fmt.Errorf("config error: %s", strings.Join(errs, "; "))
	}
	return nil
}
