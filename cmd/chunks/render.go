package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/model"
)

var renderCmd = &cobra.Command{
	Use:   "render <key> | render <owner-type> <owner-id> <key>",
	Short: "Render a global or scoped chunk",
	Long: `Render a chunk the way an anonymous page viewer would see it.

With one argument the global chunk is rendered. A missing key is created
with the key itself as placeholder content. With three arguments the owner's inline chunk is
rendered, falling back to the global chunk named by --default.`,
	GroupID: "render",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("expected <key> or <owner-type> <owner-id> <key>, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		var (
			content string
			err     error
		)
		if len(args) == 1 {
			content, err = chunksClient.Render(ctx, args[0])
		} else {
			def, _ := cmd.Flags().GetString("default")
			content, err = chunksClient.RenderScoped(ctx, model.OwnerRef{Type: args[0], ID: args[1]}, args[2], def)
		}
		if err != nil {
			return fmt.Errorf("rendering: %w", err)
		}

		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"content": content})
		} else {
			fmt.Println(content)
		}
		return nil
	},
}

var renderOwnerCmd = &cobra.Command{
	Use:     "render-owner <owner-type> <owner-id>",
	Short:   "Render every inline chunk of an owner",
	GroupID: "render",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := chunksClient.RenderOwner(context.Background(), model.OwnerRef{Type: args[0], ID: args[1]})
		if err != nil {
			return fmt.Errorf("rendering owner: %w", err)
		}
		if jsonOutput {
			printJSON(os.Stdout, chunks)
		} else {
			printRenderedMap(os.Stdout, chunks)
		}
		return nil
	},
}

var buildersCmd = &cobra.Command{
	Use:     "builders",
	Short:   "List the configured content builders",
	GroupID: "render",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		choices, err := chunksClient.ListBuilders(context.Background())
		if err != nil {
			return fmt.Errorf("listing builders: %w", err)
		}
		if jsonOutput {
			printJSON(os.Stdout, choices)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDENT\tTITLE")
		for _, c := range choices {
			fmt.Fprintf(w, "%s\t%s\n", c.Ident, c.Title)
		}
		return w.Flush()
	},
}

func init() {
	renderCmd.Flags().String("default", "", "global chunk key to fall back to for scoped renders")
}
