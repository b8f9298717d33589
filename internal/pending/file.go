package pending

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the queue as a JSONL append log: one independently
// parseable record per line. Appends are a single write; Remove and
// RecordFailure rewrite the log atomically (temp file + rename). A
// trailing partial record from a crash mid-write is tolerated and
// dropped on the next read; Append truncates it first so the new record
// starts on its own line instead of merging into the fragment.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("empty queue path")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) Append(action Action) error {
	line, err := json.Marshal(action)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dropPartialTail(f); err != nil {
		return err
	}
	_, err = f.Write(line)
	return err
}

// dropPartialTail truncates an unterminated trailing fragment left by a
// crash mid-append. Every complete record ends with a newline, so a file
// not ending in one carries a droppable fragment that would otherwise
// merge with the next appended record and corrupt the log mid-stream.
func dropPartialTail(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	raw := make([]byte, size)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return err
	}
	keep := int64(bytes.LastIndexByte(raw, '\n') + 1)
	return f.Truncate(keep)
}

func (s *FileStore) List() ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := s.readAll()
	if err != nil {
		return err
	}
	kept := actions[:0]
	found := false
	for _, a := range actions {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrNotFound
	}
	return s.rewrite(kept)
}

func (s *FileStore) RecordFailure(id string, attemptErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := s.readAll()
	if err != nil {
		return err
	}
	found := false
	for i := range actions {
		if actions[i].ID == id {
			actions[i].Attempts++
			msg := attemptErr
			actions[i].LastError = &msg
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	return s.rewrite(actions)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readAll() ([]Action, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	lines := bytes.Split(raw, []byte("\n"))
	actions := make([]Action, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var a Action
		if err := json.Unmarshal(line, &a); err != nil {
			// Trailing partial record from a crash mid-write.
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("queue record %d: %w", i+1, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (s *FileStore) rewrite(actions []Action) error {
	var buf bytes.Buffer
	for _, a := range actions {
		line, err := json.Marshal(a)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
