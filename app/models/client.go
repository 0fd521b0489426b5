package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
	"GoEstateAI/app/utils/restclient"
)

const (
	endpoint          = "/v1/chat/completions"
	embeddingEndpoint = "/v1/embeddings"
)

var _ Interface = &LLMClient{}

type Options struct {
	BaseURL         string
	APIKey          string
	Model           string
	EmbeddingsModel string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	// MaxRetries is the total number of attempts per request; 1 disables retrying.
	MaxRetries int
}

type LLMClient struct {
	restClient      *restclient.RestClient
	log             *logger.Logger
	model           string
	embeddingsModel string
	temperature     float64
	maxTokens       int
	maxRetries      int
	backoff         time.Duration
}

func NewLLMClient(opts Options, log *logger.Logger) *LLMClient {
	headers := map[string]string{}
	if opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + opts.APIKey
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LLMClient{
		restClient:      restclient.NewRestClient(opts.BaseURL, headers, opts.Timeout),
		log:             log.With("component", "llm"),
		model:           opts.Model,
		embeddingsModel: opts.EmbeddingsModel,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		maxRetries:      opts.MaxRetries,
		backoff:         100 * time.Millisecond,
	}
}

// Chat sends the conversation to the completion endpoint and returns the
// assistant's reply. Any failure is reported as a GenerationError.
func (mc *LLMClient) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	payload := requestPayload{
		Model:       mc.model,
		Messages:    messages,
		Temperature: mc.temperature,
		MaxTokens:   mc.maxTokens,
	}

	var response ResponseLLM
	if err := mc.sendRequestAndParse(ctx, endpoint, payload, &response); err != nil {
		return "", domain.GenerationError("chat_completion", err)
	}
	if len(response.Choices) == 0 {
		return "", domain.GenerationError("chat_completion", errors.New("empty choices in LLM response"))
	}
	mc.log.Debug("🧠 completion received",
		"model", response.Model,
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens)
	return response.Choices[0].Message.Content, nil
}

// sendRequestAndParse posts payload and decodes the JSON reply into out,
// retrying transport failures, 429 and 5xx answers with exponential backoff.
func (mc *LLMClient) sendRequestAndParse(ctx context.Context, path string, payload, out any) error {
	var err error
	var response []byte
	var status int

	for i := 0; i < mc.maxRetries; i++ {
		select {
		case <-ctx.Done():
			mc.log.Warn("🚨 Request canceled before execution", "endpoint", path)
			return ctx.Err()
		default:
		}
		if i > 0 {
			if err := sleepCtx(ctx, time.Duration(math.Pow(2, float64(i)))*mc.backoff); err != nil {
				return err
			}
		}

		response, status, err = mc.restClient.Post(ctx, path, payload, nil)
		if err != nil {
			mc.log.Warn("⚠️ LLM request attempt failed", "attempt", i+1, "endpoint", path, "status", status, "error", err)
			if !retryable(status) {
				return err
			}
			continue
		}

		if err = json.Unmarshal(response, out); err != nil {
			err = fmt.Errorf("parse response: %w", err)
			mc.log.Warn("⚠️ Error parsing response", "attempt", i+1, "endpoint", path, "error", err)
			continue
		}
		return nil
	}

	if mc.maxRetries == 1 {
		return err
	}
	return fmt.Errorf("request failed after %d attempts: %w", mc.maxRetries, err)
}

// retryable reports whether a failed request may succeed on a later attempt.
// A zero status means the request never got an answer.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
