package pending

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := first.Append(testAction("act_1", "reminder_add", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	actions, err := second.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "act_1" {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFileStoreToleratesTrailingPartialRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Append(testAction("act_1", "reminder_add", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Simulate a crash mid-append: an unterminated half record.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"id":"act_2","cre`); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	_ = f.Close()

	actions, err := store.List()
	if err != nil {
		t.Fatalf("list with partial tail: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "act_1" {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFileStoreAppendAfterPartialRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Append(testAction("act_1", "reminder_add", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Crash mid-append: an unterminated half record with no newline.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"id":"act_2","cre`); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	_ = f.Close()

	// The next append must not merge into the fragment; the fragment is
	// dropped and the log stays fully readable.
	if err := store.Append(testAction("act_3", "reminder_add", time.Now())); err != nil {
		t.Fatalf("append after partial: %v", err)
	}
	actions, err := store.List()
	if err != nil {
		t.Fatalf("list after append: %v", err)
	}
	if len(actions) != 2 || actions[0].ID != "act_1" || actions[1].ID != "act_3" {
		t.Fatalf("actions = %+v, want act_1 then act_3", actions)
	}

	// Later mutations keep working too.
	if err := store.Remove("act_1"); err != nil {
		t.Fatalf("remove after repair: %v", err)
	}
	if err := store.RecordFailure("act_3", "backend down"); err != nil {
		t.Fatalf("record failure after repair: %v", err)
	}
}

func TestFileStoreAppendToPartialOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"act_1","cre`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Append(testAction("act_2", "reminder_add", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	actions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "act_2" {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFileStoreRejectsMidLogCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	good, _ := json.Marshal(testAction("act_2", "reminder_add", time.Now()))
	content := "not-json\n" + string(good) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, err = store.List()
	if err == nil || !strings.Contains(err.Error(), "queue record 1") {
		t.Fatalf("err = %v, want queue record 1 corruption", err)
	}
}

func TestFileStoreRewriteIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, id := range []string{"act_1", "act_2"} {
		if err := store.Append(testAction(id, "reminder_add", time.Now())); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := store.Remove("act_1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after rewrite")
	}
	actions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "act_2" {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestNewActionDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAction("reminder_add", json.RawMessage(`{}`), now)
	if a.ID == "" {
		t.Fatal("missing generated id")
	}
	if !a.CreatedAt.Equal(now) {
		t.Fatalf("createdAt = %v", a.CreatedAt)
	}
	if a.Attempts != 0 || a.LastError != nil {
		t.Fatalf("unexpected defaults: %+v", a)
	}
}
