package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "arbor is an incremental tree-reconciliation engine",
	Long: `arbor renders element documents (YAML or JSON) through an interruptible
render phase and an atomic commit, and serves live trees over HTTP or MCP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "", "Log level written to stderr: debug, info, warn or error (default off)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	rootCmd.PersistentFlags().String("pretty", "auto", "Styled output: auto, always or never")
}

// createLogger builds the logger from the persistent flags.
func createLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	logger, err := cli.NewLogger(cli.LogConfig{Level: level, JSON: asJSON})
	if err != nil {
		exitWith(err)
	}
	return logger
}

// readDocument reads the file named by args[0], or stdin for "-".
func readDocument(args []string) []byte {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitWith(fmt.Errorf("failed to read stdin: %w", err))
		}
		return data
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWith(fmt.Errorf("failed to read document: %w", err))
	}
	return data
}

func exitWith(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
