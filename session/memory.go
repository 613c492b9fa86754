package session

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 128

// MemoryStore хранит сессии в памяти процесса
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	saves   int
	now     func() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return State{}, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return State{}, false, nil
	}
	return e.state, true, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[id] = memoryEntry{state: state, expiresAt: now.Add(ttl)}

	s.saves++
	if s.saves%sweepEvery == 0 {
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) TakeCaptcha(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", nil
	}
	answer := e.state.CaptchaAnswer
	e.state.CaptchaAnswer = ""
	s.entries[id] = e
	return answer, nil
}

// Len возвращает число хранимых записей, включая еще не вычищенные просроченные
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
