package storage

import "sync"

// ThreadLocks hands out one mutex per thread id.
type ThreadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewThreadLocks() *ThreadLocks {
	return &ThreadLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until threadID is free and returns the matching unlock.
func (l *ThreadLocks) Lock(threadID string) func() {
	l.mu.Lock()
	m, ok := l.locks[threadID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[threadID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
