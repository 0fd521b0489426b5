package models

import (
	"context"
	"errors"
	"fmt"

	"GoEstateAI/app/domain"
)

// EmbedText returns the embedding of input. Results are not cached; every
// call reaches the embedding service.
func (mc *LLMClient) EmbedText(ctx context.Context, input string) ([]float32, error) {
	if mc.embeddingsModel == "" {
		return nil, domain.ConfigError("embed_text", "embeddings model is empty")
	}

	req := embeddingRequestPayload{
		Model:          mc.embeddingsModel,
		Input:          input,
		EncodingFormat: "float",
	}
	var resp embeddingResponse
	if err := mc.sendRequestAndParse(ctx, embeddingEndpoint, req, &resp); err != nil {
		return nil, domain.EmbeddingServiceError("embed_text", err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.EmbeddingServiceError("embed_text", errors.New("no embedding data returned"))
	}
	emb := resp.Data[0].Embedding
	if len(emb) == 0 {
		return nil, domain.EmbeddingServiceError("embed_text", fmt.Errorf("empty embedding for model %s", mc.embeddingsModel))
	}
	return emb, nil
}
