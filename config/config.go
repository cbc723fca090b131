package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Generation providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Passage store kinds.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Empty context policies.
const (
	EmptyContextFail    = "fail"
	EmptyContextProceed = "proceed"
)

// Theme adherence modes.
const (
	AdherenceDedicated   = "dedicated"
	AdherenceCompetency2 = "competency2"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Database struct {
		URI  string `yaml:"uri"`
		Name string `yaml:"name"`
	} `yaml:"database"`

	Redis RedisConfig `yaml:"redis"`

	Generation GenerationConfig `yaml:"generation"`

	Retrieval RetrievalConfig `yaml:"retrieval"`

	Evaluation EvaluationConfig `yaml:"evaluation"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`

	JWT struct {
		Secret string `yaml:"secret"`
		Expiry int    `yaml:"expiry"` // minutes
	} `yaml:"jwt"`

	RateLimit struct {
		Max    int           `yaml:"max"`
		Window time.Duration `yaml:"window"`
	} `yaml:"rateLimit"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// DefaultTemperature applies when the configuration leaves temperature unset.
const DefaultTemperature = 0.3

// GenerationConfig selects the hosted model used for every evaluator call.
type GenerationConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	MaxOutputTokens  int           `yaml:"maxOutputTokens"`
	Temperature      *float64      `yaml:"temperature"` // nil means DefaultTemperature; 0 is greedy
	CallTimeout      time.Duration `yaml:"callTimeout"`
	TransportRetries int           `yaml:"transportRetries"`
	BaseURL          string        `yaml:"baseURL"`
	OpenAIKey        string        `yaml:"openaiKey"`
	AnthropicKey     string        `yaml:"anthropicKey"`
	GeminiKey        string        `yaml:"geminiKey"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, gemini or hash
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type RetrievalConfig struct {
	Store              string          `yaml:"store"`
	K                  int             `yaml:"k"`
	Budget             int             `yaml:"budget"` // characters
	EmptyContextPolicy string          `yaml:"emptyContextPolicy"`
	SQLitePath         string          `yaml:"sqlitePath"`
	MongoCollection    string          `yaml:"mongoCollection"`
	MongoIndex         string          `yaml:"mongoIndex"`
	CorpusDir          string          `yaml:"corpusDir"` // ingested at startup when set
	ChunkSize          int             `yaml:"chunkSize"`
	ChunkOverlap       int             `yaml:"chunkOverlap"`
	Embedding          EmbeddingConfig `yaml:"embedding"`
}

type EvaluationConfig struct {
	MaxAttempts   int    `yaml:"maxAttempts"`
	Step          int    `yaml:"step"`
	Concurrency   int    `yaml:"concurrency"`
	AdherenceMode string `yaml:"adherenceMode"`
	MinThemeChars int    `yaml:"minThemeChars"`
	MinEssayChars int    `yaml:"minEssayChars"`
}

// LoadConfig reads the configuration file, applies environment overrides and defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file: mock backend, in-memory store.
func Default() *Config {
	var cfg Config
	cfg.Generation.Provider = ProviderMock
	cfg.Retrieval.Store = StoreMemory
	cfg.Retrieval.Embedding.Provider = "hash"
	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	envOr := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	envOr(&c.Generation.OpenAIKey, "OPENAI_API_KEY")
	envOr(&c.Generation.AnthropicKey, "ANTHROPIC_API_KEY")
	envOr(&c.Generation.GeminiKey, "GEMINI_API_KEY")
	envOr(&c.JWT.Secret, "JWT_SECRET")
	envOr(&c.Database.URI, "MONGODB_URI")
	envOr(&c.Redis.Addr, "REDIS_ADDR")
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 1313
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Database.Name == "" {
		c.Database.Name = "redacao"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 24 * time.Hour
	}

	g := &c.Generation
	if g.Provider == "" {
		g.Provider = ProviderOpenAI
	}
	if g.Model == "" {
		g.Model = DefaultModel(g.Provider)
	}
	if g.MaxOutputTokens == 0 {
		g.MaxOutputTokens = 1500
	}
	if g.Temperature == nil {
		t := DefaultTemperature
		g.Temperature = &t
	}
	if g.CallTimeout == 0 {
		g.CallTimeout = 30 * time.Second
	}
	if g.TransportRetries == 0 {
		g.TransportRetries = 2
	}

	r := &c.Retrieval
	if r.Store == "" {
		r.Store = StoreSQLite
	}
	if r.K == 0 {
		r.K = 2
	}
	if r.Budget == 0 {
		r.Budget = 6000
	}
	if r.EmptyContextPolicy == "" {
		r.EmptyContextPolicy = EmptyContextFail
	}
	if r.SQLitePath == "" {
		r.SQLitePath = "./data/passages.db"
	}
	if r.MongoCollection == "" {
		r.MongoCollection = "passages"
	}
	if r.MongoIndex == "" {
		r.MongoIndex = "passage_vector_index"
	}
	if r.Embedding.Provider == "" {
		r.Embedding.Provider = ProviderOpenAI
	}
	if r.Embedding.Model == "" {
		switch r.Embedding.Provider {
		case ProviderGemini:
			r.Embedding.Model = "gemini-embedding-001"
		case ProviderOpenAI:
			r.Embedding.Model = "text-embedding-3-small"
		}
	}
	if r.Embedding.Dimensions == 0 {
		r.Embedding.Dimensions = 1536
	}

	e := &c.Evaluation
	if e.MaxAttempts == 0 {
		e.MaxAttempts = 2
	}
	if e.Step == 0 {
		e.Step = 20
	}
	if e.AdherenceMode == "" {
		e.AdherenceMode = AdherenceDedicated
	}
	if e.MinThemeChars == 0 {
		e.MinThemeChars = 10
	}
	if e.MinEssayChars == 0 {
		e.MinEssayChars = 100
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.JWT.Expiry == 0 {
		c.JWT.Expiry = 60 * 24
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}

// Validate rejects unknown enumerated values.
func (c *Config) Validate() error {
	switch c.Generation.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	switch c.Retrieval.Store {
	case StoreSQLite, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown passage store %q", c.Retrieval.Store)
	}
	switch c.Retrieval.Embedding.Provider {
	case ProviderOpenAI, ProviderGemini, "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Retrieval.Embedding.Provider)
	}
	switch c.Retrieval.EmptyContextPolicy {
	case EmptyContextFail, EmptyContextProceed:
	default:
		return fmt.Errorf("unknown empty context policy %q", c.Retrieval.EmptyContextPolicy)
	}
	switch c.Evaluation.AdherenceMode {
	case AdherenceDedicated, AdherenceCompetency2:
	default:
		return fmt.Errorf("unknown adherence mode %q", c.Evaluation.AdherenceMode)
	}
	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("generation temperature must be within [0, 2], got %v", *t)
	}
	if c.Evaluation.Step != 20 && c.Evaluation.Step != 40 {
		return fmt.Errorf("evaluation step must be 20 or 40, got %d", c.Evaluation.Step)
	}
	if c.Evaluation.MaxAttempts < 1 {
		return fmt.Errorf("evaluation maxAttempts must be positive")
	}
	if c.Retrieval.Budget < 1 || c.Retrieval.K < 1 {
		return fmt.Errorf("retrieval k and budget must be positive")
	}
	if c.Retrieval.Store == StoreMongo && c.Database.URI == "" {
		return fmt.Errorf("mongo passage store requires database.uri")
	}
	return nil
}

// DefaultModel is the model used when the configuration leaves it empty.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderMock:
		return "mock"
	default:
		return "gpt-4o-mini"
	}
}
