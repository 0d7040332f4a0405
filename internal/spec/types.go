package spec

// Config is the on-disk shape of .promptopt/config.yml.
type Config struct {
	Version   int              `yaml:"version" validate:"eq=1"`
	OutputDir string           `yaml:"output_dir" validate:"required"`
	LogLevel  string           `yaml:"log_level" validate:"omitempty,oneof=OFF ERROR WARN WARNING INFO DEBUG"`
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
	Agents    []AgentConfig    `yaml:"agents" validate:"required,min=1,dive"`
	Benchmark BenchmarkConfig  `yaml:"benchmark"`
	Loop      LoopConfig       `yaml:"loop"`
	RAG       RAGConfig        `yaml:"rag"`
	History   HistoryConfig    `yaml:"history"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// ProviderConfig describes one chat completion backend.
type ProviderConfig struct {
	ID             string          `yaml:"id" validate:"required"`
	Type           string          `yaml:"type" validate:"required,oneof=openrouter gemini"`
	BaseURL        string          `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv      string          `yaml:"api_key_env"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	TimeoutSeconds int             `yaml:"timeout_seconds" validate:"gte=0"`
	MaxAttempts    int             `yaml:"max_attempts" validate:"gte=0"`
}

// RateLimitConfig throttles calls to a provider. Zero means unlimited.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// AgentConfig binds a persona to a provider and model.
type AgentConfig struct {
	ID           string   `yaml:"id" validate:"required"`
	Role         string   `yaml:"role"`
	Goal         string   `yaml:"goal"`
	Instructions string   `yaml:"instructions"`
	Tools        []string `yaml:"tools"`
	Provider     string   `yaml:"provider" validate:"required"`
	Model        string   `yaml:"model" validate:"required"`
	Temperature  float64  `yaml:"temperature" validate:"gte=0,lte=2"`
}

type BenchmarkConfig struct {
	File string `yaml:"file"`
	// MaxItems nil means every item.
	MaxItems     *int   `yaml:"max_items" validate:"omitempty,gte=0"`
	Workers      int    `yaml:"workers" validate:"gte=0"`
	FactWorkers  int    `yaml:"fact_workers" validate:"gte=0"`
	OnJudgeError string `yaml:"on_judge_error" validate:"omitempty,oneof=fail_item fail_fast"`
}

type LoopConfig struct {
	InitialPrompt     string   `yaml:"initial_prompt"`
	Threshold         *float64 `yaml:"threshold" validate:"omitempty,gte=0,lte=1"`
	MaxRetries        *int     `yaml:"max_retries" validate:"omitempty,gte=0"`
	ArtifactPath      string   `yaml:"artifact_path"`
	SummarizeFeedback bool     `yaml:"summarize_feedback"`
}

type RAGConfig struct {
	PersistDir string          `yaml:"persist_dir"`
	Collection string          `yaml:"collection"`
	TopK       int             `yaml:"top_k" validate:"gte=0"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	DocsDir    string          `yaml:"docs_dir"`
	Extensions []string        `yaml:"extensions"`
	ChunkSize  int             `yaml:"chunk_size" validate:"gte=0"`
	Rephrase   bool            `yaml:"rephrase"`
}

type EmbeddingConfig struct {
	Type      string `yaml:"type" validate:"omitempty,oneof=openai gemini"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	CacheSize int    `yaml:"cache_size" validate:"gte=0"`
}

// HistoryConfig points at the DuckDB file; an empty path disables history.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig names a Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Agent returns the agent with id, if configured.
func (c Config) Agent(id string) (AgentConfig, bool) {
	for _, agent := range c.Agents {
		if agent.ID == id {
			return agent, true
		}
	}
	return AgentConfig{}, false
}

// Provider returns the provider with id, if configured.
func (c Config) Provider(id string) (ProviderConfig, bool) {
	for _, provider := range c.Providers {
		if provider.ID == id {
			return provider, true
		}
	}
	return ProviderConfig{}, false
}
