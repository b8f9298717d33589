package app

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// versionPayload is the machine-readable shape behind `remindgate
// version --json`, matched by release tooling.
type versionPayload struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

func versionCmd(args []string) int {
	return runVersionCmd(args, os.Stdout, os.Stderr)
}

func runVersionCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	longOutput := fs.Bool("long", false, "")
	jsonOutput := fs.Bool("json", false, "")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "remindgate version: %v\n", err)
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "remindgate version: unexpected positional arguments")
		return 2
	}

	payload := versionPayload{
		Version:   strings.TrimSpace(version),
		Commit:    strings.TrimSpace(commit),
		BuildDate: strings.TrimSpace(buildDate),
	}

	switch {
	case *jsonOutput:
		if err := json.NewEncoder(stdout).Encode(payload); err != nil {
			fmt.Fprintf(stderr, "remindgate version: %v\n", err)
			return 1
		}
	case *longOutput:
		fmt.Fprintf(stdout, "%s commit=%s build_date=%s\n", payload.Version, payload.Commit, payload.BuildDate)
	default:
		fmt.Fprintln(stdout, payload.Version)
	}
	return 0
}
