package storage

import (
	"context"
	"sort"
	"sync"

	"GoEstateAI/app/domain"
)

var _ Interface = &MemoryStorage{}

// MemoryStorage keeps threads for the lifetime of the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	threads map[string][]domain.Message
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		threads: make(map[string][]domain.Message),
	}
}

func (s *MemoryStorage) Append(_ context.Context, threadID string, message domain.Message) error {
	if threadID == "" {
		return ErrEmptyThreadID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], message)
	return nil
}

func (s *MemoryStorage) History(_ context.Context, threadID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.threads[threadID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStorage) Window(ctx context.Context, threadID string, policy WindowPolicy) ([]domain.Message, error) {
	history, err := s.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return TrimWindow(history, policy), nil
}

func (s *MemoryStorage) Threads(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStorage) Close() error { return nil }
