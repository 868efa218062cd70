package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/client"
	"github.com/alfredjeanlab/chunks/internal/model"
)

var showCmd = &cobra.Command{
	Use:     "show <key|id>",
	Short:   "Show a global chunk by key (or by id with --id)",
	GroupID: "chunks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byID, _ := cmd.Flags().GetBool("id")

		var (
			chunk *model.Chunk
			err   error
		)
		if byID {
			chunk, err = chunksClient.GetChunk(context.Background(), args[0])
		} else {
			chunk, err = chunksClient.GetChunkByKey(context.Background(), args[0])
		}
		if err != nil {
			return fmt.Errorf("getting chunk %s: %w", args[0], err)
		}

		if jsonOutput {
			printJSON(os.Stdout, chunk)
		} else {
			printChunkTable(os.Stdout, chunk)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List global chunks",
	GroupID: "chunks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		resp, err := chunksClient.ListChunks(context.Background(), &client.ListChunksRequest{
			Search: search,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("listing chunks: %w", err)
		}

		if jsonOutput {
			printJSON(os.Stdout, resp.Chunks)
		} else {
			printChunkListTable(os.Stdout, resp.Chunks, resp.Total, contentWidth())
		}
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> [content]",
	Short: "Create or update a global chunk",
	Long: `Create or update the global chunk with the given key.

Content is taken from the argument, from --file, or from stdin when the
argument is "-". --builder pins the chunk to a configured builder; an
empty value returns it to key-based selection.`,
	GroupID: "chunks",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		ctx := context.Background()

		contentSet, content, err := readContent(cmd, args[1:])
		if err != nil {
			return err
		}
		var description *string
		if cmd.Flags().Changed("description") {
			d, _ := cmd.Flags().GetString("description")
			description = &d
		}
		pin := flagPtr(cmd, "builder")

		existing, err := chunksClient.GetChunkByKey(ctx, key)
		switch {
		case isNotFound(err):
			req := &client.CreateChunkRequest{Key: key, Content: content}
			if description != nil {
				req.Description = *description
			}
			if pin != nil {
				req.Builder = *pin
			}
			chunk, err := chunksClient.CreateChunk(ctx, req)
			if err != nil {
				return fmt.Errorf("creating chunk %s: %w", key, err)
			}
			return reportChunk("Created", chunk)
		case err != nil:
			return fmt.Errorf("getting chunk %s: %w", key, err)
		}

		req := &client.UpdateChunkRequest{Description: description, Builder: pin}
		if contentSet {
			req.Content = &content
		}
		if req.Content == nil && req.Description == nil && req.Builder == nil {
			return fmt.Errorf("nothing to update for %s: pass content, --file, --description or --builder", key)
		}
		chunk, err := chunksClient.UpdateChunk(ctx, existing.ID, req)
		if err != nil {
			return fmt.Errorf("updating chunk %s: %w", key, err)
		}
		return reportChunk("Updated", chunk)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <key>...",
	Short:   "Delete one or more global chunks",
	GroupID: "chunks",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byID, _ := cmd.Flags().GetBool("id")
		ctx := context.Background()

		for _, ref := range args {
			id := ref
			if !byID {
				chunk, err := chunksClient.GetChunkByKey(ctx, ref)
				if err != nil {
					return fmt.Errorf("getting chunk %s: %w", ref, err)
				}
				id = chunk.ID
			}
			if err := chunksClient.DeleteChunk(ctx, id); err != nil {
				return fmt.Errorf("deleting %s: %w", ref, err)
			}
			fmt.Printf("Deleted %s\n", ref)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("id", false, "treat the argument as a chunk id")

	listCmd.Flags().String("search", "", "case-insensitive match on key, description and content")
	listCmd.Flags().Int("limit", 0, "maximum number of chunks to return")
	listCmd.Flags().Int("offset", 0, "number of chunks to skip")

	setCmd.Flags().String("description", "", "editor-facing description")
	setCmd.Flags().StringP("file", "f", "", "read content from a file")
	setCmd.Flags().String("builder", "", "pin the chunk to a configured builder")

	deleteCmd.Flags().Bool("id", false, "treat arguments as chunk ids")
}

func reportChunk(verb string, chunk *model.Chunk) error {
	if jsonOutput {
		printJSON(os.Stdout, chunk)
		return nil
	}
	fmt.Printf("%s %s (%s)\n", verb, chunk.Key, chunk.ID)
	return nil
}

// readContent resolves content from --file, a positional argument, or
// stdin for "-". The bool reports whether any content was supplied.
func readContent(cmd *cobra.Command, args []string) (bool, string, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" && len(args) > 0 {
		return false, "", errors.New("pass content either as an argument or with --file, not both")
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return false, "", fmt.Errorf("reading %s: %w", file, err)
		}
		return true, string(data), nil
	}
	if len(args) == 0 {
		return false, "", nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return false, "", fmt.Errorf("reading stdin: %w", err)
		}
		return true, strings.TrimSuffix(string(data), "\n"), nil
	}
	return true, args[0], nil
}

// flagPtr returns the string flag's value when it was set explicitly.
func flagPtr(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func isNotFound(err error) bool {
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
