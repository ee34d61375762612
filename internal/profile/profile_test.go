package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.LLMProvider)
	assert.Equal(t, "https://api.openai.com/v1", p.LLMBaseURL)
	assert.Equal(t, "gpt-4o", p.LLMModel)
	assert.Equal(t, 120, p.LLMTimeout)

	assert.InDelta(t, 0.8, p.RelevanceWeight, 1e-9)
	assert.InDelta(t, 0.2, p.RecencyWeight, 1e-9)
	assert.Equal(t, 20, p.ANNOverfetch)
	assert.Equal(t, 200, p.MemoryWindow)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MENTORA_AI_LLM_PROVIDER", "deepseek")
	t.Setenv("MENTORA_RETRIEVAL_ANN_OVERFETCH", "5")
	t.Setenv("MENTORA_RETRIEVAL_RELEVANCE_WEIGHT", "0.6")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "deepseek", p.LLMProvider)
	assert.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	assert.Equal(t, 5, p.ANNOverfetch)
	assert.InDelta(t, 0.6, p.RelevanceWeight, 1e-9)
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	t.Setenv("MENTORA_AI_LLM_PROVIDER", "does-not-exist")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.LLMProvider)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres"}
		p.FromEnv()
		err := p.Validate()
		require.Error(t, err)
	})

	t.Run("postgres with dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres", DSN: "postgres://localhost/mentora"}
		p.FromEnv()
		require.NoError(t, p.Validate())
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mongodb"}
		p.FromEnv()
		require.Error(t, p.Validate())
	})

	t.Run("unknown mode normalized to demo", func(t *testing.T) {
		p := &Profile{Mode: "weird", Driver: "postgres", DSN: "postgres://localhost/mentora"}
		p.FromEnv()
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("sqlite dsn defaults under data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		p.FromEnv()
		require.NoError(t, p.Validate())
		assert.Contains(t, p.DSN, "mentora_dev.db")
	})
}
