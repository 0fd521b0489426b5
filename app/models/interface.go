package models

import (
	"context"

	"GoEstateAI/app/domain"
)

type Interface interface {
	Chat(ctx context.Context, messages []domain.Message) (string, error)
	EmbedText(ctx context.Context, input string) ([]float32, error)
}
