// Package main provides the Soniox speech-to-text CLI tool.
//
// Usage:
//
//	soniox [flags] <service> <command> [args]
//
// Services:
//
//	transcribe - Transcribe local files or remote URLs
//	jobs       - Inspect and manage transcription jobs
//	files      - Manage uploaded audio files
//	stream     - Real-time transcription of a local audio file
//	config     - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.soniox/config.yaml.
//	Use 'soniox config' commands to manage contexts. Without a context the
//	SONIOX_API_KEY environment variable is used.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/soniox-sdk/cmd/soniox/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
