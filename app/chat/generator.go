package chat

import (
	"context"
	"errors"
	"strings"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/models"
	"GoEstateAI/app/rag"
	"GoEstateAI/app/storage"
)

type TurnState string

const (
	StateAwaitingInput TurnState = "AWAITING_INPUT"
	StateRetrieving    TurnState = "RETRIEVING"
	StateGenerating    TurnState = "GENERATING"
	StateAppended      TurnState = "APPENDED"
)

var ErrEmptyMessage = errors.New("message is empty")

type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string, topK int) (string, error)
}

type Model interface {
	Chat(ctx context.Context, messages []domain.Message) (string, error)
}

type Options struct {
	SystemPrompt string
	TopK         int
	Window       storage.WindowPolicy
	// DegradeOnRetrievalError answers without grounding when retrieval fails
	// instead of failing the turn.
	DegradeOnRetrievalError bool
}

// Generator answers one user turn: record the question, retrieve grounding,
// ask the model and record the answer.
type Generator struct {
	store     storage.Interface
	retriever ContextRetriever
	model     Model
	opts      Options
	turns     *storage.ThreadLocks
	log       *logger.Logger
}

func NewGenerator(store storage.Interface, retriever ContextRetriever, model Model, opts Options, log *logger.Logger) *Generator {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = models.DefaultSystemPrompt
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{
		store:     store,
		retriever: retriever,
		model:     model,
		opts:      opts,
		turns:     storage.NewThreadLocks(),
		log:       log.With("component", "generator"),
	}
}

// Generate answers userMessage within threadID. Turns on one thread run one at
// a time so user and assistant messages alternate. Retrieval and generation
// errors are returned to the caller; the user message stays recorded.
func (g *Generator) Generate(ctx context.Context, threadID, userMessage string) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return "", ErrEmptyMessage
	}
	unlock := g.turns.Lock(threadID)
	defer unlock()

	log := g.log.With("thread", threadID)
	log.Debug("turn", "state", StateAwaitingInput)

	if err := g.store.Append(ctx, threadID, domain.Message{Role: domain.RoleUser, Content: userMessage}); err != nil {
		return "", err
	}
	window, err := g.store.Window(ctx, threadID, g.opts.Window)
	if err != nil {
		return "", err
	}

	log.Debug("turn", "state", StateRetrieving, "top_k", g.opts.TopK)
	grounding, err := g.retriever.RetrieveContext(ctx, userMessage, g.opts.TopK)
	if err != nil {
		if !g.opts.DegradeOnRetrievalError || !isRetrievalError(err) {
			log.Error("❌ retrieval failed", "code", domain.CodeOf(err), "error", err)
			return "", err
		}
		log.Warn("⚠️ retrieval failed, answering without grounding", "code", domain.CodeOf(err), "error", err)
		grounding = rag.NoContextSentinel
	}

	log.Debug("turn", "state", StateGenerating, "window", len(window))
	prompt := g.buildPrompt(grounding, window)
	reply, err := g.model.Chat(ctx, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = domain.GenerationError("generate", err)
		}
		log.Error("❌ generation failed", "error", err)
		return "", err
	}

	if err = g.store.Append(ctx, threadID, domain.Message{Role: domain.RoleAssistant, Content: reply}); err != nil {
		return "", err
	}
	log.Debug("turn", "state", StateAppended)
	log.Debug("turn", "state", StateAwaitingInput)
	return reply, nil
}

func (g *Generator) buildPrompt(grounding string, window []domain.Message) []domain.Message {
	prompt := make([]domain.Message, 0, len(window)+1)
	prompt = append(prompt, domain.Message{
		Role:    domain.RoleSystem,
		Content: g.opts.SystemPrompt + "\n\n" + models.GroundingMessage(grounding),
	})
	return append(prompt, window...)
}

func isRetrievalError(err error) bool {
	return errors.Is(err, domain.ErrStoreQuery) || errors.Is(err, domain.ErrEmbedding)
}

// UserFacingError turns a query-time failure into a message safe to show a user.
func UserFacingError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyMessage):
		return "Please type a question about the properties you are looking for."
	case errors.Is(err, context.DeadlineExceeded):
		return "Sorry, that took too long. Please try again."
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrStoreQuery):
		return "Sorry, property search is unavailable right now. Please try again later."
	case errors.Is(err, domain.ErrGeneration):
		return "Sorry, I could not generate an answer right now. Please try again later."
	}
	return "Sorry, something went wrong while answering. Please try again."
}
