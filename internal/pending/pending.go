// Package pending persists deferred write actions while the reminders
// backend is unreachable. It is local state management only: nothing in
// this package assumes the backend is up, triggers replay on a timer, or
// expires entries on failure. Each store is scoped to one workspace
// context (one queue path or DSN); two contexts never share entries.
package pending

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action is one deferred write operation. The store owns entries
// exclusively: callers append, list, and apply replay outcomes through
// the store, never by mutating an Action in place.
type Action struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Op        string          `json:"op"`
	Args      json.RawMessage `json:"args"`
	Attempts  int             `json:"attempts"`
	LastError *string         `json:"lastError"`
}

func NewAction(op string, args json.RawMessage, now time.Time) Action {
	return Action{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Op:        op,
		Args:      args,
	}
}

var ErrNotFound = errors.New("pending action not found")

// Store is the durable queue contract. Remove is only ever called after
// a successful replay; RecordFailure increments the attempt counter and
// stores the error but never deletes — removal on repeated failure is a
// caller decision, not store policy.
type Store interface {
	Append(action Action) error
	List() ([]Action, error)
	Remove(id string) error
	RecordFailure(id string, attemptErr string) error
	Close() error
}
