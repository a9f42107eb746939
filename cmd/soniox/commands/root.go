package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputFmt   string
	outputJSON  bool
	jqExpr      string
	verbose     bool

	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "soniox",
	Short: "Soniox speech-to-text CLI tool",
	Long: `Soniox CLI - A command line interface for the Soniox speech-to-text API.

This tool supports:
  - Asynchronous transcription of local files and public URLs
  - Job inspection, waiting and cleanup
  - Real-time streaming transcription of local audio

Configuration is stored in ~/.soniox/config.yaml and supports multiple
contexts, similar to kubectl's context management. Without a context the
SONIOX_API_KEY environment variable is used.

Examples:
  # Set up a new context
  soniox config add-context prod --api-key YOUR_API_KEY

  # Transcribe a local file
  soniox transcribe file meeting.mp3 --diarize

  # Stream a WAV file in real time
  soniox stream call.wav --language-hints en,es
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.soniox/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input request file (YAML or JSON, - for stdin)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "format", "", "output format: yaml, json or raw")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().StringVar(&jqExpr, "jq", "", "filter output with a jq expression")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(streamCmd)
}

func initConfig() {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		// keep going so env-only usage still works
		fmt.Fprintf(os.Stderr, "Warning: soniox config: %v\n", err)
	}
}

func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the selected context. When no context is named and
// none is current, it returns nil so the caller falls back to the
// environment.
func getContext() (*cli.Context, error) {
	if globalConfig == nil || (contextName == "" && globalConfig.CurrentContext == "") {
		return nil, nil
	}
	return globalConfig.ResolveContext(contextName)
}

// newClient builds a client from the selected context, or from SONIOX_*
// environment variables when no context is configured.
func newClient(extra ...soniox.Option) (*soniox.Client, *cli.Context, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, nil, err
	}
	opts := append([]soniox.Option{soniox.WithLogger(slog.Default())}, extra...)
	if ctx == nil {
		client, err := soniox.FromEnv(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("no context configured and %w; use 'soniox config add-context'", err)
		}
		slog.Debug("using environment credentials")
		return client, nil, nil
	}
	if ctx.APIKey == "" {
		return nil, nil, fmt.Errorf("context %q has no api key", ctx.Name)
	}
	if ctx.BaseURL != "" {
		opts = append(opts, soniox.WithBaseURL(ctx.BaseURL))
	}
	if ctx.WebSocketURL != "" {
		opts = append(opts, soniox.WithWebSocketURL(ctx.WebSocketURL))
	}
	if ctx.MaxRetries > 0 {
		opts = append(opts, soniox.WithMaxRetries(ctx.MaxRetries))
	}
	slog.Debug("using context", "name", ctx.Name)
	return soniox.NewClient(ctx.APIKey, opts...), ctx, nil
}

// outputResult renders result with the global output flags.
func outputResult(result any) error {
	format := cli.OutputFormat(outputFmt)
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
		JQ:     jqExpr,
	})
}
