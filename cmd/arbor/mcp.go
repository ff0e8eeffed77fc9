package main

import (
	"context"
	"log"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts arbor as an MCP Server.
This allows AI agents to render element documents and click through live trees.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		err := cli.RunMCP(ctx, cli.MCPOptions{
			StackOptions: cli.StackOptions{
				RedisAddr: redisAddr,
				DataDir:   dataDir,
				Logger:    createLogger(cmd),
			},
			Transport: transport,
			Port:      port,
		})
		if err != nil {
			exitWith(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("redis", "", "Redis address for snapshots and distributed locks (default in-memory)")
	mcpCmd.Flags().String("data-dir", "", "Directory for snapshot files when redis is not used")
}
