package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/client"
	"github.com/alfredjeanlab/chunks/internal/ui"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool
	noColor    bool

	chunksClient client.ChunksClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("CHUNKS_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:          "chunks <command>",
	Short:        "Manage and render editable content chunks",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(noColor)
		chunksClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if chunksClient != nil {
			chunksClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CHUNKS_AUTH_TOKEN"), "bearer token for the admin API")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "chunks", Title: "Chunks:"},
		&cobra.Group{ID: "inline", Title: "Inline chunks:"},
		&cobra.Group{ID: "render", Title: "Rendering:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Chunks
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)

	// Inline chunks
	rootCmd.AddCommand(inlineCmd)

	// Rendering
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(renderOwnerCmd)
	rootCmd.AddCommand(buildersCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
