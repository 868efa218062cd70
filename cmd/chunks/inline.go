package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/client"
	"github.com/alfredjeanlab/chunks/internal/model"
)

var inlineCmd = &cobra.Command{
	Use:     "inline",
	Short:   "Manage chunks attached to an owner object",
	GroupID: "inline",
}

var inlineListCmd = &cobra.Command{
	Use:   "list [<owner-type> <owner-id>]",
	Short: "List inline chunks, optionally for one owner",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or <owner-type> <owner-id>, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		req := &client.ListInlineChunksRequest{Search: search, Limit: limit, Offset: offset}
		if len(args) == 2 {
			req.OwnerType, req.OwnerID = args[0], args[1]
		}
		resp, err := chunksClient.ListInlineChunks(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing inline chunks: %w", err)
		}

		if jsonOutput {
			printJSON(os.Stdout, resp.InlineChunks)
		} else {
			printInlineListTable(os.Stdout, resp.InlineChunks, resp.Total, contentWidth())
		}
		return nil
	},
}

var inlineShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an inline chunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunk, err := chunksClient.GetInlineChunk(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting inline chunk %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(os.Stdout, chunk)
		} else {
			printInlineChunkTable(os.Stdout, chunk)
		}
		return nil
	},
}

var inlineSetCmd = &cobra.Command{
	Use:   "set <owner-type> <owner-id> <key> [content]",
	Short: "Create or update an inline chunk",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		owner := model.OwnerRef{Type: args[0], ID: args[1]}
		key := args[2]

		contentSet, content, err := readContent(cmd, args[3:])
		if err != nil {
			return err
		}

		existing, err := findInline(ctx, owner, key)
		if err != nil {
			return err
		}

		if existing == nil {
			req := &client.CreateInlineChunkRequest{
				OwnerType: owner.Type,
				OwnerID:   owner.ID,
				Key:       key,
				Content:   content,
			}
			req.Description, _ = cmd.Flags().GetString("description")
			req.Order, _ = cmd.Flags().GetInt("order")
			req.Builder, _ = cmd.Flags().GetString("builder")
			chunk, err := chunksClient.CreateInlineChunk(ctx, req)
			if err != nil {
				return fmt.Errorf("creating inline chunk %s/%s: %w", owner, key, err)
			}
			return reportInline("Created", chunk)
		}

		req := &client.UpdateInlineChunkRequest{Builder: flagPtr(cmd, "builder")}
		if contentSet {
			req.Content = &content
		}
		if cmd.Flags().Changed("description") {
			d, _ := cmd.Flags().GetString("description")
			req.Description = &d
		}
		if cmd.Flags().Changed("order") {
			o, _ := cmd.Flags().GetInt("order")
			req.Order = &o
		}
		if req.Content == nil && req.Description == nil && req.Order == nil && req.Builder == nil {
			return fmt.Errorf("nothing to update for %s/%s", owner, key)
		}
		chunk, err := chunksClient.UpdateInlineChunk(ctx, existing.ID, req)
		if err != nil {
			return fmt.Errorf("updating inline chunk %s/%s: %w", owner, key, err)
		}
		return reportInline("Updated", chunk)
	},
}

var inlineDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more inline chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := chunksClient.DeleteInlineChunk(context.Background(), id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}
			fmt.Printf("Deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	inlineListCmd.Flags().String("search", "", "case-insensitive match on key, description and content")
	inlineListCmd.Flags().Int("limit", 0, "maximum number of inline chunks to return")
	inlineListCmd.Flags().Int("offset", 0, "number of inline chunks to skip")

	inlineSetCmd.Flags().String("description", "", "editor-facing description")
	inlineSetCmd.Flags().Int("order", 0, "position among the owner's chunks")
	inlineSetCmd.Flags().String("builder", "", "pin the chunk to a configured builder")
	inlineSetCmd.Flags().StringP("file", "f", "", "read content from a file")

	inlineCmd.AddCommand(inlineListCmd)
	inlineCmd.AddCommand(inlineShowCmd)
	inlineCmd.AddCommand(inlineSetCmd)
	inlineCmd.AddCommand(inlineDeleteCmd)
}

// findInline returns the owner's inline chunk with key, or nil when absent.
func findInline(ctx context.Context, owner model.OwnerRef, key string) (*model.InlineChunk, error) {
	resp, err := chunksClient.ListInlineChunks(ctx, &client.ListInlineChunksRequest{
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing inline chunks for %s: %w", owner, err)
	}
	for _, c := range resp.InlineChunks {
		if c.Key == key {
			return c, nil
		}
	}
	return nil, nil
}

func reportInline(verb string, chunk *model.InlineChunk) error {
	if jsonOutput {
		printJSON(os.Stdout, chunk)
		return nil
	}
	fmt.Printf("%s %s/%s (%s)\n", verb, chunk.Owner, chunk.Key, chunk.ID)
	return nil
}
