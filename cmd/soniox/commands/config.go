package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage Soniox CLI configuration.

Configuration is stored in ~/.soniox/config.yaml.
Multiple contexts can be defined for different accounts or environments.`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with API credentials.

Examples:
  soniox config add-context prod --api-key YOUR_API_KEY
  soniox config add-context local --api-key test --base-url http://localhost:8080 --ws-url ws://localhost:8080/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		apiKey, _ := cmd.Flags().GetString("api-key")
		baseURL, _ := cmd.Flags().GetString("base-url")
		wsURL, _ := cmd.Flags().GetString("ws-url")
		model, _ := cmd.Flags().GetString("model")
		hints, _ := cmd.Flags().GetStringSlice("language-hints")
		retries, _ := cmd.Flags().GetInt("max-retries")

		if apiKey == "" {
			return fmt.Errorf("api-key is required")
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ctx := &cli.Context{
			APIKey:        apiKey,
			BaseURL:       baseURL,
			WebSocketURL:  wsURL,
			DefaultModel:  model,
			LanguageHints: hints,
			MaxRetries:    retries,
		}
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context '%s'", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Show the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
		} else {
			fmt.Println(cfg.CurrentContext)
		}
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, name)
		}
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View full configuration with API keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		return outputResult(cfg.Redacted())
	},
}

func init() {
	configAddContextCmd.Flags().StringP("api-key", "k", "", "API key (required)")
	configAddContextCmd.Flags().StringP("base-url", "u", "", "REST base URL (default: https://api.soniox.com)")
	configAddContextCmd.Flags().String("ws-url", "", "real-time websocket URL")
	configAddContextCmd.Flags().String("model", "", "default model for this context")
	configAddContextCmd.Flags().StringSlice("language-hints", nil, "default language hints")
	configAddContextCmd.Flags().Int("max-retries", 0, "REST retry limit")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
