package main

import (
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export the rendered tree as a Mermaid diagram",
	Long:  `Renders the document and outputs a Mermaid diagram (graph TD) of the committed tree.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := cli.Render(cmd.Context(), os.Stdout, readDocument(args), cli.NewRegistry(), cli.RenderOptions{
			Format: cli.FormatGraph,
			Logger: createLogger(cmd),
		})
		if err != nil {
			exitWith(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
