// Command remindgate bridges MCP clients to the remindctl reminders CLI.
//
// It exposes reminder and list operations as MCP tools over stdio or
// HTTP, resolves ambiguous references before mutating anything, and
// queues writes while the reminders backend is unreachable.
//
// Usage:
//
//	remindgate serve --bind 127.0.0.1:7420
//	remindgate mcp serve
package main

import (
	"os"

	"remindgate/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args))
}
