package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, 25, cfg.MaxMeetingsPerCompany)
	require.Equal(t, 30*time.Second, cfg.LLMTimeout)
	require.Equal(t, "gpt-4o-mini", cfg.Models[RoleIntent])
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("MAX_MEETINGS_PER_COMPANY", "7")
	os.Setenv("MODEL_INTENT", "gpt-4.1")
	os.Setenv("LLM_TIMEOUT", "10s")
	defer os.Unsetenv("MAX_MEETINGS_PER_COMPANY")
	defer os.Unsetenv("MODEL_INTENT")
	defer os.Unsetenv("LLM_TIMEOUT")

	cfg := Load()
	require.Equal(t, 7, cfg.MaxMeetingsPerCompany)
	require.Equal(t, "gpt-4.1", cfg.Models[RoleIntent])
	require.Equal(t, 10*time.Second, cfg.LLMTimeout)
}

func TestLoadInvalidIntFallsBackToDefault(t *testing.T) {
	os.Setenv("MAX_TOTAL_TRANSCRIPTS", "not-a-number")
	defer os.Unsetenv("MAX_TOTAL_TRANSCRIPTS")

	cfg := Load()
	require.Equal(t, 50, cfg.MaxTotalTranscripts)
}
