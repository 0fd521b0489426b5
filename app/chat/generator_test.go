package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/rag"
	"GoEstateAI/app/storage"
)

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) RetrieveContext(ctx context.Context, query string, topK int) (string, error) {
	args := m.Called(ctx, query, topK)
	return args.String(0), args.Error(1)
}

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func newGenerator(store storage.Interface, r ContextRetriever, m Model, degrade bool) *Generator {
	return NewGenerator(store, r, m, Options{
		SystemPrompt:            "You are a house buying assistant.",
		TopK:                    2,
		Window:                  storage.WindowPolicy{MaxMessages: 20, IncludeSystem: true},
		DegradeOnRetrievalError: degrade,
	}, logger.NewNop())
}

func TestGenerateAppendsBothTurns(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, "3 bedroom flat under £500k", 2).Return("[1] https://x/1\nPrice: £450,000", nil)

	m := &mockModel{}
	m.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == domain.RoleSystem &&
			strings.HasPrefix(msgs[0].Content, "You are a house buying assistant.") &&
			strings.Contains(msgs[0].Content, "Price: £450,000") &&
			msgs[1] == domain.Message{Role: domain.RoleUser, Content: "3 bedroom flat under £500k"}
	})).Return("There is a 3 bed flat at £450,000.", nil)

	g := newGenerator(store, r, m, false)
	reply, err := g.Generate(ctx, "thread-1", "3 bedroom flat under £500k")
	require.NoError(t, err)
	assert.Equal(t, "There is a 3 bed flat at £450,000.", reply)

	h, err := store.History(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{
		{Role: domain.RoleUser, Content: "3 bedroom flat under £500k"},
		{Role: domain.RoleAssistant, Content: "There is a 3 bed flat at £450,000."},
	}, h)
	m.AssertExpectations(t)
}

func TestGenerateKeepsThreadsApart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, mock.Anything, 2).Return(rag.NoContextSentinel, nil)
	m := &mockModel{}
	m.On("Chat", mock.Anything, mock.Anything).Return("ok", nil)

	g := newGenerator(store, r, m, false)
	_, err := g.Generate(ctx, "a", "first")
	require.NoError(t, err)
	_, err = g.Generate(ctx, "b", "second")
	require.NoError(t, err)
	_, err = g.Generate(ctx, "a", "third")
	require.NoError(t, err)

	last := m.Calls[len(m.Calls)-1].Arguments.Get(1).([]domain.Message)
	require.Len(t, last, 4)
	assert.Equal(t, "first", last[1].Content)
	assert.Equal(t, "third", last[3].Content)

	b, err := store.History(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 2)
}

func lastContent(content string) any {
	return mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) > 0 && msgs[len(msgs)-1].Content == content
	})
}

func TestGenerateSerializesTurnsPerThread(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, mock.Anything, 2).Return(rag.NoContextSentinel, nil)

	started := make(chan struct{})
	m := &mockModel{}
	m.On("Chat", mock.Anything, lastContent("u1")).Run(func(mock.Arguments) {
		close(started)
		time.Sleep(50 * time.Millisecond)
	}).Return("a1", nil)
	m.On("Chat", mock.Anything, lastContent("u2")).Return("a2", nil)

	g := newGenerator(store, r, m, false)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := g.Generate(ctx, "t", "u1")
		assert.NoError(t, err)
	}()
	<-started
	go func() {
		defer wg.Done()
		_, err := g.Generate(ctx, "t", "u2")
		assert.NoError(t, err)
	}()
	wg.Wait()

	h, err := store.History(ctx, "t")
	require.NoError(t, err)
	contents := make([]string, 0, len(h))
	for _, msg := range h {
		contents = append(contents, msg.Content)
	}
	assert.Equal(t, []string{"u1", "a1", "u2", "a2"}, contents)
}

func TestGenerateRetrievalFailurePropagates(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, "q", 2).Return("", domain.StoreQueryError("search", errors.New("refused")))
	m := &mockModel{}

	_, err := newGenerator(store, r, m, false).Generate(context.Background(), "t", "q")
	assert.ErrorIs(t, err, domain.ErrStoreQuery)
	m.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	assert.Equal(t, "Sorry, property search is unavailable right now. Please try again later.", UserFacingError(err))
}

func TestGenerateDegradesWhenConfigured(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, "q", 2).Return("", domain.EmbeddingServiceError("embed_text", errors.New("429")))
	m := &mockModel{}
	m.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.Message) bool {
		return strings.Contains(msgs[0].Content, rag.NoContextSentinel)
	})).Return("I do not have data on that.", nil)

	reply, err := newGenerator(store, r, m, true).Generate(context.Background(), "t", "q")
	require.NoError(t, err)
	assert.Equal(t, "I do not have data on that.", reply)
}

func TestGenerateGenerationError(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	r := &mockRetriever{}
	r.On("RetrieveContext", mock.Anything, "q", 2).Return(rag.NoContextSentinel, nil)
	m := &mockModel{}
	m.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("503"))

	_, err := newGenerator(store, r, m, true).Generate(ctx, "t", "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)

	h, err := store.History(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{{Role: domain.RoleUser, Content: "q"}}, h)
}

func TestGenerateRejectsEmptyMessage(t *testing.T) {
	_, err := newGenerator(storage.NewMemoryStorage(), &mockRetriever{}, &mockModel{}, false).Generate(context.Background(), "t", "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestUserFacingError(t *testing.T) {
	assert.Empty(t, UserFacingError(nil))
	assert.Contains(t, UserFacingError(domain.GenerationError("chat", errors.New("x"))), "could not generate")
	assert.Contains(t, UserFacingError(context.DeadlineExceeded), "took too long")
	assert.Contains(t, UserFacingError(errors.New("boom")), "something went wrong")
}
