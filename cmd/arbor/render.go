package main

import (
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render an element document into the in-memory host",
	Long: `Decodes a YAML or JSON element document, renders it and prints the host tree.

Components: Counter, Toggle. Use --dispatch tag:event to deliver events after
the first render, e.g. --dispatch button:click.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		slice, _ := cmd.Flags().GetDuration("slice")
		dispatch, _ := cmd.Flags().GetStringArray("dispatch")
		prettyMode, _ := cmd.Flags().GetString("pretty")

		pretty, err := tui.ResolvePretty(prettyMode, os.Stdout)
		if err != nil {
			exitWith(err)
		}

		err = cli.Render(cmd.Context(), os.Stdout, readDocument(args), cli.NewRegistry(), cli.RenderOptions{
			Format:   format,
			Pretty:   pretty,
			Slice:    slice,
			Dispatch: dispatch,
			Logger:   createLogger(cmd),
		})
		if err != nil {
			exitWith(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("format", "f", cli.FormatMarkup, "Output: markup, ops, json, report or graph")
	renderCmd.Flags().Duration("slice", 0, "Render with an idle scheduler granting this much time per slice (0 flushes)")
	renderCmd.Flags().StringArray("dispatch", nil, "Deliver tag:event after the first render (repeatable)")
}
