package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{name: "env", ref: "env:API_KEY"},
		{name: "file", ref: "file:/run/secrets/key"},
		{name: "raw", ref: "raw:hunter2"},
		{name: "empty", ref: "", wantErr: true},
		{name: "empty env name", ref: "env:", wantErr: true},
		{name: "empty file path", ref: "file: ", wantErr: true},
		{name: "unknown scheme", ref: "vault:secret/key", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRef(tt.ref)
			if tt.wantErr != (err != nil) {
				t.Fatalf("ValidateRef(%q) = %v", tt.ref, err)
			}
			if err != nil && !errors.Is(err, ErrSecretRef) {
				t.Fatalf("err = %v, want ErrSecretRef", err)
			}
		})
	}
}

func TestLoadRefEnv(t *testing.T) {
	t.Setenv("REMINDGATE_TEST_SECRET", "s3cret")
	got, err := LoadRef("env:REMINDGATE_TEST_SECRET")
	if err != nil {
		t.Fatalf("LoadRef: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("got %q", got)
	}

	if _, err := LoadRef("env:REMINDGATE_TEST_SECRET_MISSING"); err == nil {
		t.Fatal("expected error for missing env var")
	}
}

func TestLoadRefFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadRef("file:" + path)
	if err != nil {
		t.Fatalf("LoadRef: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("got %q, want trimmed value", got)
	}
}

func TestLoadRefRaw(t *testing.T) {
	got, err := LoadRef("raw:literal")
	if err != nil {
		t.Fatalf("LoadRef: %v", err)
	}
	if got != "literal" {
		t.Fatalf("got %q", got)
	}
}
