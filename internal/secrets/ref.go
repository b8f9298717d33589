// Package secrets loads secret values from reference strings so keys
// never have to live in command lines or config files directly.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrSecretRef = errors.New("invalid secret reference")

// ValidateRef checks a secret reference without loading its value.
//
// Supported forms:
// - env:NAME
// - file:/path/to/secret
// - raw:literal-value (tests/dev only)
func ValidateRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("%w: empty", ErrSecretRef)
	}

	switch {
	case strings.HasPrefix(ref, "env:"):
		if strings.TrimSpace(strings.TrimPrefix(ref, "env:")) == "" {
			return fmt.Errorf("%w: env var name is empty", ErrSecretRef)
		}
		return nil
	case strings.HasPrefix(ref, "file:"):
		if strings.TrimSpace(strings.TrimPrefix(ref, "file:")) == "" {
			return fmt.Errorf("%w: file path is empty", ErrSecretRef)
		}
		return nil
	case strings.HasPrefix(ref, "raw:"):
		if strings.TrimPrefix(ref, "raw:") == "" {
			return fmt.Errorf("%w: raw value is empty", ErrSecretRef)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme (use env:, file:, or raw:)", ErrSecretRef)
	}
}

// LoadRef resolves a secret reference to its value.
func LoadRef(ref string) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	ref = strings.TrimSpace(ref)

	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimSpace(strings.TrimPrefix(ref, "env:"))
		val := os.Getenv(name)
		if val == "" {
			return "", fmt.Errorf("%w: env var %q is empty or missing", ErrSecretRef, name)
		}
		return val, nil
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimSpace(strings.TrimPrefix(ref, "file:"))
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		val := strings.TrimSpace(string(b))
		if val == "" {
			return "", fmt.Errorf("%w: file %q is empty", ErrSecretRef, path)
		}
		return val, nil
	default:
		return strings.TrimPrefix(ref, "raw:"), nil
	}
}
