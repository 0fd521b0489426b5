package rag

import (
	"context"
	"fmt"
	"strings"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

// NoContextSentinel stands in for the grounding block when retrieval finds nothing.
const NoContextSentinel = "No matching property listings were found in the knowledge base."

const contextSeparator = "\n\n-----\n\n"

// Retriever is read-only over the vector store: it embeds a query and
// formats the nearest chunks into a grounding block.
type Retriever struct {
	embedder   Embedder
	store      VectorStore
	collection string
	log        *logger.Logger
}

func NewRetriever(embedder Embedder, store VectorStore, collection string, log *logger.Logger) *Retriever {
	if log == nil {
		log = logger.NewNop()
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		log:        log.With("component", "retriever"),
	}
}

// Retrieve returns at most topK hits, best first. A non-positive topK yields
// an empty result. Embedding and store failures propagate unchanged.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	if topK <= 0 {
		return domain.RetrievalResult{}, nil
	}
	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := r.store.Search(ctx, r.collection, vec, topK)
	if err != nil {
		return nil, err
	}
	if len(res) > topK {
		res = res[:topK]
	}
	r.log.Debug("🔎 retrieved context", "hits", len(res), "top_k", topK)
	return res, nil
}

// RetrieveContext joins the retrieved chunks into one block. An empty result
// yields NoContextSentinel rather than an error.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, topK int) (string, error) {
	res, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return FormatContext(res), nil
}

func FormatContext(res domain.RetrievalResult) string {
	if len(res) == 0 {
		return NoContextSentinel
	}
	blocks := make([]string, 0, len(res))
	for i, hit := range res {
		header := fmt.Sprintf("[%d]", i+1)
		if hit.SourceURL != "" {
			header += " " + hit.SourceURL
		}
		blocks = append(blocks, header+"\n"+strings.TrimSpace(hit.Text))
	}
	return strings.Join(blocks, contextSeparator)
}
