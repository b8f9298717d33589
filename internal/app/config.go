package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"remindgate/internal/secrets"
)

// serveConfig carries everything the serving commands need. Flags win
// over environment variables; environment variables win over defaults.
type serveConfig struct {
	Bind         string
	APIKey       string
	AuthRequired bool

	RemindctlBin string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	QueuePath   string
	PostgresDSN string
	Workspace   string

	LogLevel   string
	DotenvPath string
	Watch      bool

	TracingEndpoint string
	TracingInsecure bool
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Bind:         "127.0.0.1:7420",
		AuthRequired: true,
		RemindctlBin: "remindctl",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		QueuePath:    "./.data/pending.jsonl",
		Workspace:    "default",
		LogLevel:     "info",
		Watch:        true,
	}
}

func (c *serveConfig) applyEnv() error {
	if v := envString("REMINDGATE_BIND"); v != "" {
		c.Bind = v
	}
	if v := envString("REMINDGATE_API_KEY"); v != "" {
		c.APIKey = v
	}
	if ref := envString("REMINDGATE_API_KEY_REF"); ref != "" {
		val, err := secrets.LoadRef(ref)
		if err != nil {
			return fmt.Errorf("REMINDGATE_API_KEY_REF: %w", err)
		}
		c.APIKey = val
	}
	if v, ok, err := envBool("REMINDGATE_AUTH_REQUIRED"); err != nil {
		return err
	} else if ok {
		c.AuthRequired = v
	}
	if v := envString("REMINDCTL_BIN"); v != "" {
		c.RemindctlBin = v
	}
	if d, ok, err := envDuration("REMINDCTL_READ_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.ReadTimeout = d
	}
	if d, ok, err := envDuration("REMINDCTL_WRITE_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.WriteTimeout = d
	}
	if v := envString("REMINDGATE_QUEUE"); v != "" {
		c.QueuePath = v
	}
	if v := envString("REMINDGATE_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := envString("REMINDGATE_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := envString("REMINDGATE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := envString("REMINDGATE_TRACING_ENDPOINT"); v != "" {
		c.TracingEndpoint = v
	}
	if v, ok, err := envBool("REMINDGATE_TRACING_INSECURE"); err != nil {
		return err
	} else if ok {
		c.TracingInsecure = v
	}
	return nil
}

func (c *serveConfig) validate() error {
	if strings.TrimSpace(c.Bind) == "" {
		return errors.New("bind address is required")
	}
	if strings.TrimSpace(c.RemindctlBin) == "" {
		return errors.New("remindctl binary path is required")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.AuthRequired && strings.TrimSpace(c.APIKey) == "" {
		return errors.New("auth is required but no API key is configured (set REMINDGATE_API_KEY or pass --no-auth)")
	}
	if strings.TrimSpace(c.QueuePath) == "" && strings.TrimSpace(c.PostgresDSN) == "" {
		return errors.New("queue path or postgres DSN is required")
	}
	return nil
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string) (bool, bool, error) {
	raw := envString(key)
	if raw == "" {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, true, nil
}

func envDuration(key string) (time.Duration, bool, error) {
	raw := envString(key)
	if raw == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	if d <= 0 {
		return 0, false, fmt.Errorf("%s: duration must be positive", key)
	}
	return d, true, nil
}
