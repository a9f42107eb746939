// Package cli provides the building blocks of the soniox command-line tool.
//
// This package includes:
//   - Configuration management (kubectl-style contexts)
//   - Output formatting (YAML, JSON, raw) with jq filtering
//   - Request file loading (YAML/JSON)
//   - Terminal rendering of live transcripts
//
// Configuration is stored in ~/.soniox/config.yaml:
//
//	cfg, err := cli.LoadConfig()
//	ctx, err := cfg.ResolveContext("")
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    JQ:     ".tokens[].text",
//	})
package cli
