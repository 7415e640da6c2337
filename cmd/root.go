package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the notioncal application
var rootCmd = &cobra.Command{
	Use:   "notioncal",
	Short: "Calendar proxy in front of Notion databases",
	Long: `notioncal turns calendar operations into Notion API calls.

It can run as:
  - A REST proxy for browser widgets (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "notioncal version %s\n" .Version}}`)

	// Without a subcommand the REST proxy is started.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
