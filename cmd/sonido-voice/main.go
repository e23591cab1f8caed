// Package main provides the sonido-voice CLI.
//
// Usage:
//
//	sonido-voice [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the HTTP API and streaming endpoint
//	analyze  - Analyze a recording and print the result as JSON
//	clean    - Band-limit and normalize a recording into a WAV file
//	presets  - List the goal presets
package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-voice/cmd/sonido-voice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
