// Package config loads the assistant's runtime configuration from
// environment variables, merging overrides over a fixed set of defaults —
// the same pattern the teacher repo uses to load its per-chain network
// table, generalized from a prefix-scan over chain IDs to a flat set of
// named knobs.
package config

import (
	"os"
	"strconv"
	"time"
)

// ModelRole names one of the per-role LLM model identifiers the system
// needs, per the "LLM model identifiers per role" configuration knob.
type ModelRole string

const (
	RoleIntent              ModelRole = "INTENT"
	RoleSingleMeetingAnswer ModelRole = "SINGLE_MEETING_RESPONSE"
	RoleExecutiveSummary    ModelRole = "EXECUTIVE_SUMMARY"
	RoleMultiMeetingSynth   ModelRole = "MULTI_MEETING_SYNTHESIS"
	RoleKBAssessment        ModelRole = "KB_ASSESSMENT"
)

// Config is the fully resolved set of runtime knobs named in the external
// interfaces section: fan-out caps, per-role models, character budgets,
// timeouts, and connection strings.
type Config struct {
	// Fan-out caps (§5, architectural hard caps — not meant to be tuned
	// past what the resolver enforces, but the numeric value itself is
	// a knob).
	MaxMeetingsPerCompany int
	MaxTotalTranscripts   int

	// Character budgets.
	SummaryCharBudget           int
	TranscriptSnippetCharBudget int

	// Per-call timeouts.
	LLMTimeout           time.Duration
	WebSearchTimeout     time.Duration
	ArtifactStoreTimeout time.Duration

	// Per-role model identifiers.
	Models map[ModelRole]string

	// Connection strings.
	PostgresDSN string
	RedisAddr   string

	// HTTP listen address for the chat-surface webhook.
	ListenAddr string

	// OpenAI-compatible API key used by the langchaingo client.
	LLMAPIKey string

	Verbose bool
}

func defaults() Config {
	return Config{
		MaxMeetingsPerCompany:       25,
		MaxTotalTranscripts:         50,
		SummaryCharBudget:           15000,
		TranscriptSnippetCharBudget: 300,
		LLMTimeout:                  30 * time.Second,
		WebSearchTimeout:            15 * time.Second,
		ArtifactStoreTimeout:        5 * time.Second,
		Models: map[ModelRole]string{
			RoleIntent:              "gpt-4o-mini",
			RoleSingleMeetingAnswer: "gpt-4o-mini",
			RoleExecutiveSummary:    "gpt-4o",
			RoleMultiMeetingSynth:   "gpt-4o",
			RoleKBAssessment:        "gpt-4o-mini",
		},
		PostgresDSN: "postgres://localhost:5432/meetingbrain?sslmode=disable",
		RedisAddr:   "localhost:6379",
		ListenAddr:  ":8080",
	}
}

// Load builds a Config from defaults, overridden by environment variables.
// It does not call godotenv.Load itself — the entrypoint does that once,
// before Load runs, and treats a missing .env file as non-fatal.
func Load() Config {
	cfg := defaults()

	cfg.MaxMeetingsPerCompany = getEnvInt("MAX_MEETINGS_PER_COMPANY", cfg.MaxMeetingsPerCompany)
	cfg.MaxTotalTranscripts = getEnvInt("MAX_TOTAL_TRANSCRIPTS", cfg.MaxTotalTranscripts)
	cfg.SummaryCharBudget = getEnvInt("SUMMARY_CHAR_BUDGET", cfg.SummaryCharBudget)
	cfg.TranscriptSnippetCharBudget = getEnvInt("TRANSCRIPT_SNIPPET_CHAR_BUDGET", cfg.TranscriptSnippetCharBudget)

	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.WebSearchTimeout = getEnvDuration("WEB_SEARCH_TIMEOUT", cfg.WebSearchTimeout)
	cfg.ArtifactStoreTimeout = getEnvDuration("ARTIFACT_STORE_TIMEOUT", cfg.ArtifactStoreTimeout)

	for role := range cfg.Models {
		if v := os.Getenv("MODEL_" + string(role)); v != "" {
			cfg.Models[role] = v
		}
	}

	cfg.PostgresDSN = getEnvString("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", cfg.RedisAddr)
	cfg.ListenAddr = getEnvString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.Verbose = getEnvBool("VERBOSE", false)

	return cfg
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
