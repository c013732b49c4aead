package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/cmd/zxplorer/commands"
	"github.com/pyros-projects/zxplorer/logger"
)

var rootCmd = &cobra.Command{
	Use:   "zxplorer",
	Short: "zxplorer - Prompt operator language and image generation explorer",
	Long: `zxplorer - Explore image-generation latent space with prompt operators.

Prompts are free-form text with embedded operators that blend, subtract,
schedule, and fan out conditioning:

  cat + dog : 0.3          blend 30% toward cat
  day ^ night : 40%        switch conditioning 40% through the run
  dawn % dusk : 5          five-step interpolation walk
  *a misty forest : 4      four diverse-seed variations

Available commands:
  generate - Render a prompt expression to images
  validate - Check a prompt expression without rendering
  vars     - Manage prompt variables (__name__ placeholders)
  serve    - Start the HTTP/WebSocket server
  version  - Show build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")
	rootCmd.PersistentFlags().String("config", "", "Path to a zxplorer.toml config file")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.VarsCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
