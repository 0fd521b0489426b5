package storage

import (
	"context"
	"errors"

	"GoEstateAI/app/domain"
)

var ErrEmptyThreadID = errors.New("thread id is empty")

// Interface persists ordered, append-only message threads. A thread is
// created by its first Append. Appends to one thread are serialized.
type Interface interface {
	Append(ctx context.Context, threadID string, message domain.Message) error
	Window(ctx context.Context, threadID string, policy WindowPolicy) ([]domain.Message, error)
	History(ctx context.Context, threadID string) ([]domain.Message, error)
	Threads(ctx context.Context) ([]string, error)
	Close() error
}
