package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/chunks/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanChunk scans a single row into a model.Chunk.
// The row must contain columns in the order defined by chunkColumns.
func scanChunk(row scannable) (*model.Chunk, error) {
	var (
		c           model.Chunk
		content     sql.NullString
		description sql.NullString
		builder     sql.NullString
	)
	err := row.Scan(&c.ID, &c.Key, &content, &description, &builder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Content = content.String
	c.Description = description.String
	c.Builder = builder.String
	return &c, nil
}

// scanChunkWithTotal scans a row that has a leading total_count column
// followed by the standard chunk columns.
func scanChunkWithTotal(row scannable) (*model.Chunk, int, error) {
	var (
		total       int
		c           model.Chunk
		content     sql.NullString
		description sql.NullString
		builder     sql.NullString
	)
	err := row.Scan(&total, &c.ID, &c.Key, &content, &description, &builder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, 0, err
	}
	c.Content = content.String
	c.Description = description.String
	c.Builder = builder.String
	return &c, total, nil
}

// scanInlineChunk scans a single row into a model.InlineChunk.
// The row must contain columns in the order defined by inlineChunkColumns.
func scanInlineChunk(row scannable) (*model.InlineChunk, error) {
	c, _, err := scanInline(row, false)
	return c, err
}

// scanInlineChunkWithTotal scans a row with a leading total_count column.
func scanInlineChunkWithTotal(row scannable) (*model.InlineChunk, int, error) {
	return scanInline(row, true)
}

func scanInline(row scannable, withTotal bool) (*model.InlineChunk, int, error) {
	var (
		total       int
		c           model.InlineChunk
		content     sql.NullString
		description sql.NullString
		builder     sql.NullString
	)
	dest := []any{
		&c.ID, &c.Owner.Type, &c.Owner.ID, &c.Key, &content, &description,
		&builder, &c.Order, &c.CreatedAt, &c.UpdatedAt,
	}
	if withTotal {
		dest = append([]any{&total}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	c.Content = content.String
	c.Description = description.String
	c.Builder = builder.String
	return &c, total, nil
}
