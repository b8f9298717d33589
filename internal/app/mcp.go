package app

import (
	"context"
	"flag"
	"fmt"
	"os"

	"remindgate/internal/mcp"
)

func mcpCmd(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "missing subcommand: serve")
		return 2
	}

	switch args[0] {
	case "serve":
		return mcpServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown mcp subcommand: %s\n", args[0])
		return 2
	}
}

// mcpServe runs the stdio transport: framed JSON-RPC on stdin/stdout,
// logs on stderr. Auth is the launching process's concern here.
func mcpServe(args []string) int {
	cfg := defaultServeConfig()
	cfg.AuthRequired = false

	fs := flag.NewFlagSet("mcp serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dotenvPath := fs.String("dotenv", "", "load environment variables from this file before reading config")
	remindctlBin := fs.String("remindctl", "", "remindctl binary name or path")
	readTimeout := fs.Duration("read-timeout", 0, "timeout for read commands")
	writeTimeout := fs.Duration("write-timeout", 0, "timeout for write commands")
	queuePath := fs.String("queue", "", "pending queue path (.jsonl file, .db sqlite file, or \"memory\")")
	postgresDSN := fs.String("postgres-dsn", "", "back the pending queue with postgres instead of a local file")
	workspace := fs.String("workspace", "", "workspace label scoping the postgres queue")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
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
	cfg.AuthRequired = false
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

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	svc, cleanup, err := buildService(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	defer cleanup()

	server := mcp.NewServer(svc, os.Stdin, os.Stdout,
		mcp.WithLogger(logger),
		mcp.WithVersion(version),
	)
	if err := server.Serve(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
