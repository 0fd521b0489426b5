package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"GoEstateAI/app/clients"
)

type Config struct {
	Log          LogConfig          `yaml:"log"`
	LLM          LLMConfig          `yaml:"llm"`
	Scraper      ScraperConfig      `yaml:"scraper"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Ingest       IngestConfig       `yaml:"ingest"`
	Conversation ConversationConfig `yaml:"conversation"`
	Chat         ChatConfig         `yaml:"chat"`
	Clients      []clients.Config   `yaml:"clients,omitempty" validate:"dive"`
}

type LogConfig struct {
	Mode string `yaml:"mode" validate:"oneof=development production"`
}

type LLMConfig struct {
	BaseURL            string  `yaml:"base_url" validate:"required,url"`
	APIKey             string  `yaml:"api_key"`
	Model              string  `yaml:"model" validate:"required"`
	EmbeddingsModel    string  `yaml:"embeddings_model" validate:"required"`
	EmbeddingDimension int     `yaml:"embedding_dimension" validate:"gt=0"`
	Temperature        float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens          int     `yaml:"max_tokens" validate:"gte=0"`
	TimeoutSecs        int     `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries         int     `yaml:"max_retries" validate:"gte=1,lte=10"`
}

type ScraperConfig struct {
	Renderer          string    `yaml:"renderer" validate:"oneof=browser http"`
	TimeoutSecs       int       `yaml:"timeout_secs" validate:"gt=0"`
	IndexURLTemplate  string    `yaml:"index_url_template" validate:"required,contains=%d"`
	UserAgent         string    `yaml:"user_agent"`
	ChromePath        string    `yaml:"chrome_path"`
	RequestsPerSecond float64   `yaml:"requests_per_second" validate:"gte=0"`
	Selectors         Selectors `yaml:"selectors"`
}

type Selectors struct {
	Price       string `yaml:"price" validate:"required"`
	Address     string `yaml:"address" validate:"required"`
	Bedrooms    string `yaml:"bedrooms" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	Features    string `yaml:"features" validate:"required"`
	ListingLink string `yaml:"listing_link" validate:"required"`
}

type ChunkerConfig struct {
	MaxSize  int `yaml:"max_size" validate:"gt=0"`
	Overlap  int `yaml:"overlap" validate:"gte=0,ltfield=MaxSize"`
	Lookback int `yaml:"lookback" validate:"gte=0"`
}

type VectorStoreConfig struct {
	Type         string       `yaml:"type" validate:"oneof=qdrant memory"`
	Collection   string       `yaml:"collection" validate:"required"`
	Metric       string       `yaml:"metric" validate:"oneof=cosine euclid euclidean dot dot_product"`
	StrictMetric bool         `yaml:"strict_metric"`
	Qdrant       QdrantConfig `yaml:"qdrant"`
}

type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port" validate:"gte=0,lte=65535"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

type IngestConfig struct {
	Pages           int      `yaml:"pages" validate:"gte=0"`
	URLs            []string `yaml:"urls" validate:"dive,url"`
	ReplaceExisting bool     `yaml:"replace_existing"`
}

type ConversationConfig struct {
	Type          string       `yaml:"type" validate:"oneof=memory sqlite redis"`
	MaxMessages   int          `yaml:"max_messages" validate:"gt=0"`
	MaxTokens     int          `yaml:"max_tokens" validate:"gte=0"`
	IncludeSystem bool         `yaml:"include_system"`
	SQLite        SQLiteConfig `yaml:"sqlite"`
	Redis         RedisConfig  `yaml:"redis"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix"`
}

type ChatConfig struct {
	TopK                    int    `yaml:"top_k" validate:"gt=0,lte=50"`
	SystemPrompt            string `yaml:"system_prompt"`
	DegradeOnRetrievalError bool   `yaml:"degrade_on_retrieval_error"`
	RequestTimeoutSecs      int    `yaml:"request_timeout_secs" validate:"gt=0"`
}

// LoadConfig reads a YAML file, expands ${ENV} references, applies defaults
// and validates the result. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read configs file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}
	if err := applyEnvFallbacks(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate configs: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configs: %s", strings.Join(msgs, "; "))
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Mode: "development"},
		LLM: LLMConfig{
			BaseURL:            "https://api.openai.com",
			Model:              "gpt-4o",
			EmbeddingsModel:    "text-embedding-3-small",
			EmbeddingDimension: 1536,
			TimeoutSecs:        60,
			MaxRetries:         1,
		},
		Scraper: ScraperConfig{
			Renderer:          "browser",
			TimeoutSecs:       45,
			RequestsPerSecond: 1,
			IndexURLTemplate:  "https://www.zoopla.co.uk/for-sale/property/london/?pn=%d",
			Selectors: Selectors{
				Price:       `[data-testid="price"]`,
				Address:     `address`,
				Bedrooms:    `[data-testid="beds-label"]`,
				Description: `[data-testid="listing_description"]`,
				Features:    `[data-testid="listing_features"] li`,
				ListingLink: `a[href*="/for-sale/details/"]`,
			},
		},
		Chunker: ChunkerConfig{MaxSize: 512, Overlap: 100, Lookback: 128},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			Collection: "listings",
			Metric:     "dot",
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334},
		},
		Ingest: IngestConfig{Pages: 1},
		Conversation: ConversationConfig{
			Type:          "memory",
			MaxMessages:   20,
			IncludeSystem: true,
			Redis:         RedisConfig{Addr: "localhost:6379", KeyPrefix: "goestate:thread:"},
		},
		Chat: ChatConfig{TopK: 4, RequestTimeoutSecs: 120},
	}
}

func applyEnvFallbacks(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if cfg.VectorStore.Qdrant.APIKey == "" {
		cfg.VectorStore.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		if err := applyQdrantURL(&cfg.VectorStore.Qdrant, v); err != nil {
			return err
		}
	}
	return nil
}

// applyQdrantURL accepts "host", "host:port" or "scheme://host[:port]".
// An https scheme turns TLS on and http turns it off.
func applyQdrantURL(q *QdrantConfig, raw string) error {
	target := raw
	if !strings.Contains(target, "://") {
		target = "grpc://" + target
	}
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid QDRANT_URL %q", raw)
	}
	q.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid QDRANT_URL port %q: %w", p, err)
		}
		q.Port = port
	}
	switch u.Scheme {
	case "https":
		q.UseTLS = true
	case "http":
		q.UseTLS = false
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = def.Log.Mode
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = def.LLM.MaxRetries
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.Scraper.TimeoutSecs == 0 {
		cfg.Scraper.TimeoutSecs = def.Scraper.TimeoutSecs
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = def.VectorStore.Qdrant.Port
	}
	if cfg.Conversation.SQLite.Path == "" {
		cfg.Conversation.SQLite.Path = defaultDBPath()
	}
	if cfg.Conversation.Redis.KeyPrefix == "" {
		cfg.Conversation.Redis.KeyPrefix = def.Conversation.Redis.KeyPrefix
	}
	if cfg.Chat.RequestTimeoutSecs == 0 {
		cfg.Chat.RequestTimeoutSecs = def.Chat.RequestTimeoutSecs
	}
}

func defaultDBPath() string {
	if p := os.Getenv("DB_PATH"); p != "" {
		return p
	}
	return "data/conversations.db"
}
