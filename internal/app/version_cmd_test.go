package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runVersionCmd(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != version {
		t.Fatalf("stdout = %q, want %q", got, version)
	}
}

func TestVersionCmdJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runVersionCmd([]string{"--json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var payload versionPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Version != version || payload.Commit == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestVersionCmdRejectsPositionalArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runVersionCmd([]string{"extra"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
