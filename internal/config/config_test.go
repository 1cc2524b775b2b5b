package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKnowledgeURL = "https://docs.example.com/sheet/pub?output=csv"

func TestLoad_WithEnvVars(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", testKnowledgeURL)
	t.Setenv("SUPPORTBOT_PORT", "9090")
	t.Setenv("SUPPORTBOT_DEBUG", "true")
	t.Setenv("SUPPORTBOT_CACHE_TTL", "90s")
	t.Setenv("SUPPORTBOT_HISTORY_CAP", "6")
	t.Setenv("SUPPORTBOT_TOP_K", "5")
	t.Setenv("SUPPORTBOT_FALLBACK_MODE", "keywords")
	t.Setenv("SUPPORTBOT_FALLBACK_KEYWORDS", "kassa,kort")
	t.Setenv("SUPPORTBOT_COMPLETION_API_KEY", "gsk-test")
	t.Setenv("SUPPORTBOT_COMPLETION_TIMEOUT", "3s")
	t.Setenv("SUPPORTBOT_CONTACT_FOOTER", "Call us.")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testKnowledgeURL, cfg.KnowledgeURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 6, cfg.HistoryCap)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "keywords", cfg.FallbackMode)
	assert.Equal(t, []string{"kassa", "kort"}, cfg.FallbackKeywords)
	assert.Equal(t, "gsk-test", cfg.CompletionAPIKey)
	assert.Equal(t, 3*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "Call us.", cfg.ContactFooter)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", testKnowledgeURL)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.HistoryCap)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, "marker", cfg.FallbackMode)
	assert.Equal(t, 12*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, float32(0.3), cfg.Temperature)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.CompletionModel)
	assert.Zero(t, cfg.MaxSessions)
	assert.Zero(t, cfg.SessionTTL)
}

func TestLoad_RequiredKnowledgeURL(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", "")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "KnowledgeURL")
}

func TestLoadEnv_SkipsValidation(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", "")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.KnowledgeURL)

	cfg.KnowledgeURL = testKnowledgeURL
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidFallbackMode(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", testKnowledgeURL)
	t.Setenv("SUPPORTBOT_FALLBACK_MODE", "guess")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FallbackMode")
}

func TestValidate_RejectsZeroHistoryCap(t *testing.T) {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", testKnowledgeURL)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.HistoryCap = 0
	assert.Error(t, cfg.Validate())
}

func TestHasCompletion(t *testing.T) {
	cfg := &Config{CompletionAPIKey: "gsk-test"}
	assert.True(t, cfg.HasCompletion())

	cfg.CompletionAPIKey = ""
	assert.False(t, cfg.HasCompletion())
}

func TestHasSentry(t *testing.T) {
	cfg := &Config{SentryDSN: "https://key@sentry.example.com/1"}
	assert.True(t, cfg.HasSentry())

	cfg.SentryDSN = ""
	assert.False(t, cfg.HasSentry())
}

func TestVars(t *testing.T) {
	byName := make(map[string]Var)
	for _, v := range Vars() {
		byName[v.Name] = v
	}

	assert.Equal(t, Var{Name: "SUPPORTBOT_PORT", Default: "8080"}, byName["SUPPORTBOT_PORT"])
	assert.Equal(t, "marker", byName["SUPPORTBOT_FALLBACK_MODE"].Default)
	assert.Equal(t, "3", byName["SUPPORTBOT_TOP_K"].Default)
	assert.True(t, byName["SUPPORTBOT_KNOWLEDGE_URL"].Required)
	assert.Empty(t, byName["SUPPORTBOT_KNOWLEDGE_URL"].Default)
	assert.True(t, byName["SUPPORTBOT_COMPLETION_MODEL"].Required)
	assert.False(t, byName["SUPPORTBOT_COMPLETION_API_KEY"].Required)
	assert.Len(t, Vars(), reflect.TypeOf(Config{}).NumField())
}
