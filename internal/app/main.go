package app

import (
	"fmt"
	"os"
)

var (
	version   = "0.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func Main(args []string) int {
	if len(args) < 2 {
		printHelp()
		return 2
	}

	switch args[1] {
	case "serve":
		return serveCmd(args[2:])
	case "mcp":
		return mcpCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[1])
		printHelp()
		return 2
	}
}

func printHelp() {
	fmt.Fprintln(os.Stdout, "remindgate")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Usage:")
	fmt.Fprintln(os.Stdout, "  remindgate serve [--bind 127.0.0.1:7420] [--remindctl remindctl] [--queue ./.data/pending.jsonl] [--postgres-dsn postgres://...] [--no-auth] [--log-level info] [--dotenv ./.env]")
	fmt.Fprintln(os.Stdout, "  remindgate mcp serve [--remindctl remindctl] [--queue ./.data/pending.jsonl] [--log-level info]")
	fmt.Fprintln(os.Stdout, "  remindgate version [--long] [--json]")
}
