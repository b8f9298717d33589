package pending

import "sync"

// MemoryStore is the in-process queue backend, used by tests and by
// serve modes that run without a queue path.
type MemoryStore struct {
	mu      sync.Mutex
	actions []Action
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Append(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *MemoryStore) List() ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out, nil
}

func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.actions {
		if a.ID == id {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) RecordFailure(id string, attemptErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.actions {
		if s.actions[i].ID == id {
			s.actions[i].Attempts++
			msg := attemptErr
			s.actions[i].LastError = &msg
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }
