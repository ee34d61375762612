package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, ollama) use the same config.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 120)

	// Embedding configuration.
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	EmbeddingRPS        int // rate limit for embedding API calls per second

	// Retrieval tunables. The relevance/recency split and the ANN over-fetch
	// ratio are configuration, not business rules.
	RelevanceWeight  float64
	RecencyWeight    float64
	ANNOverfetch     int // candidate multiplier for approximate search
	RetrievalTimeout int // per-partition timeout in seconds
	MemoryWindow     int // how many recent conversations memory search scans

	// Tagging worker.
	TagQueueSize int

	Mode    string
	Addr    string
	Data    string
	Driver  string
	DSN     string
	Version string
	Port    int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// Provider default configurations for the LLM.
// Used when MENTORA_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("MENTORA_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("MENTORA_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("MENTORA_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("MENTORA_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("MENTORA_AI_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("MENTORA_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("MENTORA_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("MENTORA_AI_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("MENTORA_AI_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("MENTORA_AI_EMBEDDING_DIMENSIONS", 1024)
	p.EmbeddingRPS = getEnvOrDefaultInt("MENTORA_AI_EMBEDDING_RPS", 10)

	p.RelevanceWeight = getEnvOrDefaultFloat("MENTORA_RETRIEVAL_RELEVANCE_WEIGHT", 0.8)
	p.RecencyWeight = getEnvOrDefaultFloat("MENTORA_RETRIEVAL_RECENCY_WEIGHT", 0.2)
	p.ANNOverfetch = getEnvOrDefaultInt("MENTORA_RETRIEVAL_ANN_OVERFETCH", 20)
	p.RetrievalTimeout = getEnvOrDefaultInt("MENTORA_RETRIEVAL_TIMEOUT_SECONDS", 10)
	p.MemoryWindow = getEnvOrDefaultInt("MENTORA_MEMORY_WINDOW", 200)

	p.TagQueueSize = getEnvOrDefaultInt("MENTORA_TAG_QUEUE_SIZE", 256)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.RelevanceWeight+p.RecencyWeight <= 0 {
		return errors.New("relevance and recency weights must sum to a positive value")
	}
	if p.ANNOverfetch <= 0 {
		p.ANNOverfetch = 20
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "/var/opt/mentora"
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("mentora_%s.db", p.Mode))
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
