// Package remindctl invokes the external remindctl binary and classifies
// its outcomes. Exactly one subprocess is spawned per call; arguments are
// passed as an argv vector and never interpolated into a shell.
package remindctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"remindgate/internal/fault"
)

const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 20 * time.Second

	// stderr excerpts are truncated before they reach logs or tool results
	// so an oversized diagnostic payload cannot leak through.
	maxStderrExcerpt = 512
)

// Fixed non-interactive machine-readable flags appended to every
// invocation.
var safeFlags = []string{"--json", "--no-input", "--no-color"}

type Option func(*Runner)

func WithTimeouts(read, write time.Duration) Option {
	return func(r *Runner) {
		if read > 0 {
			r.readTimeout = read
		}
		if write > 0 {
			r.writeTimeout = write
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type Runner struct {
	binary       string
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

func NewRunner(binary string, opts ...Option) *Runner {
	r := &Runner{
		binary:       strings.TrimSpace(binary),
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Binary() string { return r.binary }

func (r *Runner) ReadTimeout() time.Duration { return r.readTimeout }

func (r *Runner) WriteTimeout() time.Duration { return r.writeTimeout }

// Preflight verifies the binary exists and is executable. A failure here
// is fatal at startup; the same condition detected per call is not.
func (r *Runner) Preflight() error {
	if r.binary == "" {
		return fault.Unavailable("remindctl binary path is empty", nil)
	}
	path := r.binary
	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return fault.Unavailable(fmt.Sprintf("remindctl binary %q not found in PATH", path), err)
		}
		path = resolved
	}
	if err := checkExecutable(path); err != nil {
		return fault.Unavailable(fmt.Sprintf("remindctl binary %q is not executable", path), err)
	}
	return nil
}

// ValidateText rejects strings the tool surface must never forward:
// empty values, values over maxLen runes, and anything containing control
// characters. Valid UTF-8 including emoji passes through unmodified.
func ValidateText(value, fieldName string, maxLen int) error {
	if value == "" {
		return fault.Invalid("%s cannot be empty", fieldName)
	}
	runes := 0
	for _, ch := range value {
		runes++
		if unicode.IsControl(ch) {
			return fault.Invalid("%s contains control characters", fieldName)
		}
	}
	if runes > maxLen {
		return fault.Invalid("%s exceeds max length %d", fieldName, maxLen)
	}
	return nil
}

// ReadJSON runs a read-class command under the short timeout and decodes
// its stdout into out.
func (r *Runner) ReadJSON(ctx context.Context, args []string, out any) error {
	raw, err := r.run(ctx, args, r.readTimeout)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// WriteJSON runs a write-class command under the long timeout and decodes
// its stdout into out.
func (r *Runner) WriteJSON(ctx context.Context, args []string, out any) error {
	raw, err := r.run(ctx, args, r.writeTimeout)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// WriteDiscard runs a write-class command and ignores its stdout. Used
// for list mutations where remindctl emits no payload.
func (r *Runner) WriteDiscard(ctx context.Context, args []string) error {
	_, err := r.run(ctx, args, r.writeTimeout)
	return err
}

func (r *Runner) run(ctx context.Context, args []string, timeout time.Duration) ([]byte, error) {
	for _, arg := range args {
		for _, ch := range arg {
			if unicode.IsControl(ch) {
				return nil, fault.Invalid("argument contains control characters")
			}
		}
	}

	argv := make([]string, 0, len(args)+len(safeFlags))
	argv = append(argv, args...)
	argv = append(argv, safeFlags...)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, argv...)
	cmd.Stdin = nil
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	op := ""
	if len(args) > 0 {
		op = args[0]
	}
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("remindctl_timeout", slog.String("op", op), slog.Duration("timeout", timeout))
			return nil, fault.Timeout(fmt.Sprintf("remindctl %s exceeded %s timeout", op, timeout))
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fault.Unavailable(fmt.Sprintf("remindctl binary %q unavailable", r.binary), err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			excerpt := stderrExcerpt(stderr.Bytes())
			r.logger.Warn("remindctl_failed",
				slog.String("op", op),
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.String("stderr", excerpt),
			)
			return nil, fault.Process(exitErr.ExitCode(), excerpt)
		}
		return nil, fault.Unavailable("remindctl could not be started", err)
	}

	r.logger.Debug("remindctl_ok", slog.String("op", op), slog.Duration("duration", elapsed))
	return stdout.Bytes(), nil
}

func decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(out); err != nil {
		return fault.Parse(err)
	}
	return nil
}

// stderrExcerpt truncates on a rune boundary so a multi-byte character
// at the cap never leaves an invalid trailing byte in logs or messages.
func stderrExcerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) <= maxStderrExcerpt {
		return s
	}
	cut := maxStderrExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
