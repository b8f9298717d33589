package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadDotenv seeds the process environment from a local .env file so the
// gateway picks up REMINDGATE_* settings without a wrapper script.
// Variables already set to a non-empty value in the environment win over
// file entries.
func loadDotenv(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for i, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("dotenv %s:%d: missing '='", path, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("dotenv %s:%d: empty key", path, i+1)
		}
		val, err := unquoteDotenvValue(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("dotenv %s:%d: %w", path, i+1, err)
		}

		if cur := os.Getenv(key); cur != "" {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("dotenv %s:%d: %w", path, i+1, err)
		}
	}
	return nil
}

// Double quotes get full escape handling; single quotes are literal.
func unquoteDotenvValue(val string) (string, error) {
	if len(val) < 2 {
		return val, nil
	}
	switch {
	case val[0] == '"' && val[len(val)-1] == '"':
		return strconv.Unquote(val)
	case val[0] == '\'' && val[len(val)-1] == '\'':
		return val[1 : len(val)-1], nil
	}
	return val, nil
}
