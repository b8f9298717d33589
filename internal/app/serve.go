package app

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"remindgate/internal/mcp"
	"remindgate/internal/pending"
	"remindgate/internal/remindctl"
	"remindgate/internal/secrets"
	"remindgate/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(args []string) int {
	cfg := defaultServeConfig()

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dotenvPath := fs.String("dotenv", "", "load environment variables from this file before reading config")
	bind := fs.String("bind", "", "listen address (default 127.0.0.1:7420)")
	noAuth := fs.Bool("no-auth", false, "serve without bearer authentication")
	apiKeyRef := fs.String("api-key-ref", "", "bearer key reference (env:NAME, file:/path, raw:value)")
	remindctlBin := fs.String("remindctl", "", "remindctl binary name or path")
	readTimeout := fs.Duration("read-timeout", 0, "timeout for read commands")
	writeTimeout := fs.Duration("write-timeout", 0, "timeout for write commands")
	queuePath := fs.String("queue", "", "pending queue path (.jsonl file, .db sqlite file, or \"memory\")")
	postgresDSN := fs.String("postgres-dsn", "", "back the pending queue with postgres instead of a local file")
	workspace := fs.String("workspace", "", "workspace label scoping the postgres queue")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	watch := fs.Bool("watch", true, "watch the remindctl binary and re-probe health when it changes")
	tracingEndpoint := fs.String("tracing-endpoint", "", "OTLP/HTTP trace collector endpoint URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *dotenvPath != "" {
		if err := loadDotenv(*dotenvPath); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 2
		}
	}
	if err := cfg.applyEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	if *bind != "" {
		cfg.Bind = *bind
	}
	if *noAuth {
		cfg.AuthRequired = false
	}
	if *apiKeyRef != "" {
		key, err := secrets.LoadRef(*apiKeyRef)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 2
		}
		cfg.APIKey = key
	}
	if *remindctlBin != "" {
		cfg.RemindctlBin = *remindctlBin
	}
	if *readTimeout > 0 {
		cfg.ReadTimeout = *readTimeout
	}
	if *writeTimeout > 0 {
		cfg.WriteTimeout = *writeTimeout
	}
	if *queuePath != "" {
		cfg.QueuePath = *queuePath
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *workspace != "" {
		cfg.Workspace = *workspace
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.Watch = *watch
	if *tracingEndpoint != "" {
		cfg.TracingEndpoint = *tracingEndpoint
	}

	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	if err := runServe(cfg, logger); err != nil {
		logger.Error("serve_failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func runServe(cfg serveConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracingEnabled := cfg.TracingEndpoint != ""
	if tracingEnabled {
		shutdown, err := initTracing(ctx, cfg.TracingEndpoint, cfg.TracingInsecure, func(err error) {
			logger.Warn("tracing_error", slog.String("error", err.Error()))
		})
		if err != nil {
			return err
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdown(shutCtx)
		}()
	}

	svc, cleanup, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Watch {
		watcher, err := startBinaryWatcher(logger, cfg.RemindctlBin, svc.InvalidateHealth)
		if err != nil {
			logger.Warn("binary_watch_unavailable", slog.String("error", err.Error()))
		} else {
			defer watcher.Close()
		}
	}

	server := mcp.NewServer(svc, nil, nil,
		mcp.WithLogger(logger),
		mcp.WithVersion(version),
		mcp.WithAuthRequired(cfg.AuthRequired),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Health(r.Context())
		if err != nil || !status.Authorized {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "unavailable")
			return
		}
		fmt.Fprintln(w, "ok")
	})

	var handler http.Handler = mux
	handler = withBearerAuth(cfg.AuthRequired, cfg.APIKey, handler)
	handler = withAccessLog(logger, handler)
	handler = wrapTracingHandler(tracingEnabled, "remindgate", handler)

	httpServer := &http.Server{
		Addr:              cfg.Bind,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", cfg.Bind),
			slog.Bool("auth_required", cfg.AuthRequired))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting_down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutCtx)
}

// buildService assembles the runner, queue store, and orchestrator
// shared by the HTTP and stdio transports. Preflight failures are fatal
// at startup; later binary disappearance degrades to queued writes.
func buildService(cfg serveConfig, logger *slog.Logger) (*service.Service, func(), error) {
	runner := remindctl.NewRunner(cfg.RemindctlBin,
		remindctl.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout),
		remindctl.WithLogger(logger),
	)
	if err := runner.Preflight(); err != nil {
		return nil, nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := service.New(runner, store, service.WithLogger(logger))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("queue_close_failed", slog.String("error", err.Error()))
		}
	}
	return svc, cleanup, nil
}

func buildStore(cfg serveConfig) (pending.Store, error) {
	if dsn := strings.TrimSpace(cfg.PostgresDSN); dsn != "" {
		return pending.NewPostgresStore(dsn, cfg.Workspace)
	}
	path := strings.TrimSpace(cfg.QueuePath)
	switch {
	case path == "memory":
		return pending.NewMemoryStore(), nil
	case strings.HasSuffix(path, ".db"),
		strings.HasSuffix(path, ".sqlite"),
		strings.HasSuffix(path, ".sqlite3"):
		return pending.NewSQLiteStore(path)
	default:
		return pending.NewFileStore(path)
	}
}

// withBearerAuth rejects requests without the configured bearer token.
// Comparison runs over digests so token length leaks nothing.
func withBearerAuth(required bool, apiKey string, next http.Handler) http.Handler {
	if !required {
		return next
	}
	want := sha256.Sum256([]byte(apiKey))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		got := sha256.Sum256([]byte(strings.TrimSpace(token)))
		if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
