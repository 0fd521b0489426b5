package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoEstateAI/app/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *LLMClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := NewLLMClient(Options{
		BaseURL:         ts.URL,
		APIKey:          "sk-test",
		Model:           "gpt-4o",
		EmbeddingsModel: "text-embedding-3-small",
		Timeout:         time.Second,
		MaxRetries:      retries,
	}, nil)
	c.backoff = time.Millisecond
	return c
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req requestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"}}]}`))
	}, 1)

	out, err := c.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: DefaultSystemPrompt},
		{Role: domain.RoleUser, Content: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)
}

func TestChatFailuresAreGenerationErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server_error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"rate_limited", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"empty_choices", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"choices":[]}`)) }},
		{"bad_json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{`)) }},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			c := newTestClient(t, cse.handler, 1)
			_, err := c.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "x"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrGeneration)
		})
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 0)

	_, err := c.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}, 3)

	out, err := c.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, 3)

	_, err := c.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedText(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, embeddingEndpoint, r.URL.Path)
		var req embeddingRequestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, "float", req.EncodingFormat)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}, 1)

	for i := 0; i < 2; i++ {
		vec, err := c.EmbedText(context.Background(), "2 bed flat")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	}
	assert.Equal(t, int32(2), calls.Load(), "embeddings must not be cached")
}

func TestEmbedTextFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"rate_limited", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"no_data", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"data":[]}`)) }},
		{"empty_vector", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"embedding":[]}]}`))
		}},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			c := newTestClient(t, cse.handler, 1)
			_, err := c.EmbedText(context.Background(), "x")
			assert.ErrorIs(t, err, domain.ErrEmbedding)
		})
	}
}

func TestEmbedTextRequiresModel(t *testing.T) {
	c := NewLLMClient(Options{BaseURL: "http://unused"}, nil)
	_, err := c.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestGroundingMessage(t *testing.T) {
	assert.Contains(t, GroundingMessage("Price: £500,000"), "CONTEXT")
	assert.Contains(t, GroundingMessage("Price: £500,000"), "Price: £500,000")
}
