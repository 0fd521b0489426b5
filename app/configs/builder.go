package configs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"GoEstateAI/app/chat"
	"GoEstateAI/app/clients"
	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/models"
	"GoEstateAI/app/rag"
	"GoEstateAI/app/scraper"
	"GoEstateAI/app/storage"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Config) BuildLogger(verbose bool) (*logger.Logger, error) {
	return logger.New(c.Log.Mode, verbose)
}

func (c *Config) BuildLLM(log *logger.Logger) *models.LLMClient {
	return models.NewLLMClient(models.Options{
		BaseURL:         c.LLM.BaseURL,
		APIKey:          c.LLM.APIKey,
		Model:           c.LLM.Model,
		EmbeddingsModel: c.LLM.EmbeddingsModel,
		Temperature:     c.LLM.Temperature,
		MaxTokens:       c.LLM.MaxTokens,
		Timeout:         seconds(c.LLM.TimeoutSecs),
		MaxRetries:      c.LLM.MaxRetries,
	}, log)
}

func (c *Config) BuildFetcher() scraper.Fetcher {
	if c.Scraper.Renderer == "http" {
		return scraper.NewHTTPFetcher(c.Scraper.UserAgent, seconds(c.Scraper.TimeoutSecs))
	}
	return scraper.NewBrowserFetcher(c.Scraper.UserAgent, c.Scraper.ChromePath)
}

func (c *Config) BuildExtractor(log *logger.Logger) (*scraper.Extractor, error) {
	sel := c.Scraper.Selectors
	return scraper.NewExtractor(c.BuildFetcher(), scraper.Options{
		Selectors: scraper.Selectors{
			Price:       sel.Price,
			Address:     sel.Address,
			Bedrooms:    sel.Bedrooms,
			Description: sel.Description,
			Features:    sel.Features,
			ListingLink: sel.ListingLink,
		},
		IndexURLTemplate:  c.Scraper.IndexURLTemplate,
		Timeout:           seconds(c.Scraper.TimeoutSecs),
		RequestsPerSecond: c.Scraper.RequestsPerSecond,
	}, log)
}

func (c *Config) BuildChunker() (*rag.Chunker, error) {
	return rag.NewChunker(c.Chunker.MaxSize, c.Chunker.Overlap, c.Chunker.Lookback)
}

func (c *Config) CollectionSpec() (rag.CollectionSpec, error) {
	metric, err := domain.ParseMetric(c.VectorStore.Metric)
	if err != nil {
		return rag.CollectionSpec{}, err
	}
	return rag.CollectionSpec{
		Name:           c.VectorStore.Collection,
		Dimension:      c.LLM.EmbeddingDimension,
		Metric:         metric,
		EmbeddingModel: c.LLM.EmbeddingsModel,
		StrictMetric:   c.VectorStore.StrictMetric,
	}, nil
}

func (c *Config) BuildVectorStore(log *logger.Logger) (rag.VectorStore, error) {
	switch c.VectorStore.Type {
	case "memory":
		log.Warn("⚠️ using the in-memory vector store; indexed listings are lost on exit")
		return rag.NewMemoryStore(), nil
	case "qdrant":
		q := c.VectorStore.Qdrant
		store, err := rag.NewQdrantStore(rag.QdrantConfig{Host: q.Host, Port: q.Port, APIKey: q.APIKey, UseTLS: q.UseTLS}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, domain.ConfigError("build_vector_store", fmt.Sprintf("unknown vector store type %q", c.VectorStore.Type))
}

func (c *Config) BuildPipeline(source rag.ListingSource, embedder rag.Embedder, store rag.VectorStore, log *logger.Logger) (*rag.Pipeline, error) {
	chunker, err := c.BuildChunker()
	if err != nil {
		return nil, err
	}
	return rag.NewPipeline(source, chunker, embedder, store, rag.PipelineOptions{
		Collection:      c.VectorStore.Collection,
		ReplaceExisting: c.Ingest.ReplaceExisting,
	}, log), nil
}

func (c *Config) BuildConversationStore(ctx context.Context, log *logger.Logger) (storage.Interface, error) {
	switch c.Conversation.Type {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(c.Conversation.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		r := c.Conversation.Redis
		s, err := storage.NewRedisStorage(ctx, &redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB}, r.KeyPrefix, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, domain.ConfigError("build_conversation_store", fmt.Sprintf("unknown conversation store %q", c.Conversation.Type))
}

func (c *Config) WindowPolicy() storage.WindowPolicy {
	return storage.WindowPolicy{
		MaxMessages:   c.Conversation.MaxMessages,
		MaxTokens:     c.Conversation.MaxTokens,
		IncludeSystem: c.Conversation.IncludeSystem,
	}
}

func (c *Config) BuildGenerator(store storage.Interface, retriever chat.ContextRetriever, model chat.Model, log *logger.Logger) *chat.Generator {
	return chat.NewGenerator(store, retriever, model, chat.Options{
		SystemPrompt:            c.Chat.SystemPrompt,
		TopK:                    c.Chat.TopK,
		Window:                  c.WindowPolicy(),
		DegradeOnRetrievalError: c.Chat.DegradeOnRetrievalError,
	}, log)
}

func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.Chat.RequestTimeoutSecs)
}

func (c *Config) InitializeClients(clientRegistry *clients.Registry, answerer clients.Answerer, log *logger.Logger) error {
	if len(c.Clients) == 0 {
		log.Info("ℹ️ No clients configured")
		return nil
	}

	for _, clientCfg := range c.Clients {
		if !clientCfg.Enabled {
			log.Info("⏭️ Client is disabled, skipping", "type", clientCfg.Type)
			continue
		}

		log.Info("🔌 Initializing client...", "type", clientCfg.Type)
		client, err := clients.CreateClient(clientCfg, clients.Options{
			RequestTimeout: c.RequestTimeout(),
			Log:            log,
		})
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", clientCfg.Type, err)
		}

		if err := clientRegistry.Register(client, answerer); err != nil {
			return fmt.Errorf("failed to register %s client: %w", clientCfg.Type, err)
		}

		log.Info("✅ client initialized", "type", clientCfg.Type)
	}

	return nil
}
