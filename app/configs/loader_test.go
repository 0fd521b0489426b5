package configs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/scraper"
	"GoEstateAI/app/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("QDRANT_URL", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingsModel)
	assert.Equal(t, 1536, cfg.LLM.EmbeddingDimension)
	assert.Equal(t, 1, cfg.LLM.MaxRetries)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, 512, cfg.Chunker.MaxSize)
	assert.Equal(t, 100, cfg.Chunker.Overlap)
	assert.Equal(t, 1.0, cfg.Scraper.RequestsPerSecond)
	assert.Equal(t, "dot", cfg.VectorStore.Metric)
	assert.Equal(t, "memory", cfg.Conversation.Type)
	assert.False(t, cfg.Ingest.ReplaceExisting)
	assert.False(t, cfg.Chat.DegradeOnRetrievalError)
}

func TestLoadConfigFileWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_URL", "")
	path := writeConfig(t, `
log:
  mode: production
vector_store:
  type: qdrant
  collection: homes
  metric: cosine
  qdrant:
    host: ${TEST_QDRANT_HOST}
chunker:
  max_size: 256
  overlap: 32
conversation:
  type: sqlite
  max_messages: 6
clients:
  - type: discord
    enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Log.Mode)
	assert.Equal(t, "homes", cfg.VectorStore.Collection)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, 128, cfg.Chunker.Lookback)
	assert.NotEmpty(t, cfg.Conversation.SQLite.Path)
	require.Len(t, cfg.Clients, 1)
	assert.Equal(t, "discord", cfg.Clients[0].Type)

	spec, err := cfg.CollectionSpec()
	require.NoError(t, err)
	assert.Equal(t, domain.MetricCosine, spec.Metric)
	assert.Equal(t, 1536, spec.Dimension)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"overlap_not_below_max": "chunker:\n  max_size: 100\n  overlap: 100\n",
		"unknown_metric":        "vector_store:\n  metric: manhattan\n",
		"unknown_store":         "conversation:\n  type: postgres\n",
		"unknown_client":        "clients:\n  - type: slack\n    enabled: true\n",
		"bad_index_template":    "scraper:\n  index_url_template: https://example.com/list\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorContains(t, err, "invalid configs")
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "log: [unclosed"))
	assert.ErrorContains(t, err, "parse YAML")
}

func TestLoadConfigQdrantURL(t *testing.T) {
	cases := []struct {
		raw    string
		host   string
		port   int
		useTLS bool
	}{
		{"qdrant.internal", "qdrant.internal", 6334, false},
		{"qdrant.internal:7334", "qdrant.internal", 7334, false},
		{"http://qdrant.internal:6334", "qdrant.internal", 6334, false},
		{"https://cloud.qdrant.io:6443", "cloud.qdrant.io", 6443, true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.raw)
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			assert.Equal(t, tc.host, cfg.VectorStore.Qdrant.Host)
			assert.Equal(t, tc.port, cfg.VectorStore.Qdrant.Port)
			assert.Equal(t, tc.useTLS, cfg.VectorStore.Qdrant.UseTLS)
		})
	}

	t.Setenv("QDRANT_URL", "http://[::1")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "invalid QDRANT_URL")
}

func TestLoadConfigKeepsZeroLookback(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	cfg, err := LoadConfig(writeConfig(t, "chunker:\n  max_size: 256\n  overlap: 32\n  lookback: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunker.Lookback)

	ch, err := cfg.BuildChunker()
	require.NoError(t, err)
	chunks := ch.Split(strings.Repeat("ab. ", 100), "https://x/1")
	require.NotEmpty(t, chunks)
	assert.Len(t, []rune(chunks[0].Text), 256)
}

func TestBuilders(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Type = "memory"
	cfg.Scraper.Renderer = "http"
	cfg.Conversation.Type = "sqlite"
	cfg.Conversation.SQLite.Path = filepath.Join(t.TempDir(), "c.db")
	log := logger.NewNop()

	_, ok := cfg.BuildFetcher().(*scraper.HTTPFetcher)
	assert.True(t, ok)

	_, err := cfg.BuildExtractor(log)
	require.NoError(t, err)

	store, err := cfg.BuildVectorStore(log)
	require.NoError(t, err)

	p, err := cfg.BuildPipeline(nil, nil, store, log)
	require.NoError(t, err)
	assert.NotNil(t, p)

	conv, err := cfg.BuildConversationStore(context.Background(), log)
	require.NoError(t, err)
	defer conv.Close()
	_, isSQLite := conv.(*storage.SQLiteStorage)
	assert.True(t, isSQLite)

	assert.Equal(t, storage.WindowPolicy{MaxMessages: 20, IncludeSystem: true}, cfg.WindowPolicy())

	cfg.Chunker.Overlap = cfg.Chunker.MaxSize
	_, err = cfg.BuildChunker()
	assert.ErrorIs(t, err, domain.ErrConfig)
}
