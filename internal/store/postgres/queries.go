package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// chunkColumns is the column list used for SELECT statements on the chunks table.
const chunkColumns = `id, key, content, description, builder, created_at, updated_at`

// inlineChunkColumns is the column list used for SELECT statements on the inline_chunks table.
const inlineChunkColumns = `id, owner_type, owner_id, key, content, description, builder, sort_order, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapWriteErr converts unique violations into store.ErrDuplicate.
func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func queryCreateChunk(ctx context.Context, db executor, c *model.Chunk) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO chunks (id, key, content, description, builder)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		c.ID, c.Key, c.Content, c.Description, c.Builder,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapWriteErr(err)
}

func queryGetChunk(ctx context.Context, db executor, id string) (*model.Chunk, error) {
	row := db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)
	return scanChunk(row)
}

func queryGetChunkByKey(ctx context.Context, db executor, key string) (*model.Chunk, error) {
	row := db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE key = $1`, key)
	return scanChunk(row)
}

func queryListChunks(ctx context.Context, db executor, filter model.ChunkFilter) ([]*model.Chunk, int, error) {
	var (
		whereSQL string
		args     []any
		argIdx   int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Search != "" {
		whereSQL = " WHERE " + searchClause(nextArg(), "description", "key", "content")
		args = append(args, filter.Search)
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + chunkColumns + " FROM chunks" + whereSQL + " ORDER BY key ASC"
	dataQuery, args = appendPaging(dataQuery, args, filter.Limit, filter.Offset, nextArg)

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var (
		chunks []*model.Chunk
		total  int
	)
	for rows.Next() {
		c, t, err := scanChunkWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan chunks: %w", err)
		}
		total = t
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan chunks: %w", err)
	}
	return chunks, total, nil
}

func queryUpdateChunk(ctx context.Context, db executor, c *model.Chunk) error {
	err := db.QueryRowContext(ctx, `
		UPDATE chunks SET
			key = $2,
			content = $3,
			description = $4,
			builder = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Key, c.Content, c.Description, c.Builder,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapWriteErr(err)
}

func queryDeleteChunk(ctx context.Context, db executor, id string) error {
	return execDelete(ctx, db, `DELETE FROM chunks WHERE id = $1`, id)
}

func queryCreateInlineChunk(ctx context.Context, db executor, c *model.InlineChunk) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO inline_chunks (id, owner_type, owner_id, key, content, description, builder, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		c.ID, c.Owner.Type, c.Owner.ID, c.Key, c.Content, c.Description, c.Builder, c.Order,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapWriteErr(err)
}

func queryGetInlineChunk(ctx context.Context, db executor, id string) (*model.InlineChunk, error) {
	row := db.QueryRowContext(ctx, `SELECT `+inlineChunkColumns+` FROM inline_chunks WHERE id = $1`, id)
	return scanInlineChunk(row)
}

func queryGetInlineChunkByKey(ctx context.Context, db executor, owner model.OwnerRef, key string) (*model.InlineChunk, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+inlineChunkColumns+` FROM inline_chunks
		WHERE owner_type = $1 AND owner_id = $2 AND key = $3`,
		owner.Type, owner.ID, key,
	)
	return scanInlineChunk(row)
}

func queryListInlineChunks(ctx context.Context, db executor, filter model.InlineChunkFilter) ([]*model.InlineChunk, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Owner != nil {
		whereClauses = append(whereClauses, "owner_type = "+nextArg(), "owner_id = "+nextArg())
		args = append(args, filter.Owner.Type, filter.Owner.ID)
	}

	if filter.Search != "" {
		whereClauses = append(whereClauses, searchClause(nextArg(), "description", "key", "content"))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + inlineChunkColumns + " FROM inline_chunks" + whereSQL +
		" ORDER BY owner_type ASC, owner_id ASC, sort_order ASC, key ASC"
	dataQuery, args = appendPaging(dataQuery, args, filter.Limit, filter.Offset, nextArg)

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inline chunks: %w", err)
	}
	defer rows.Close()

	var (
		chunks []*model.InlineChunk
		total  int
	)
	for rows.Next() {
		c, t, err := scanInlineChunkWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inline chunks: %w", err)
		}
		total = t
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan inline chunks: %w", err)
	}
	return chunks, total, nil
}

func queryUpdateInlineChunk(ctx context.Context, db executor, c *model.InlineChunk) error {
	err := db.QueryRowContext(ctx, `
		UPDATE inline_chunks SET
			owner_type = $2,
			owner_id = $3,
			key = $4,
			content = $5,
			description = $6,
			builder = $7,
			sort_order = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Owner.Type, c.Owner.ID, c.Key, c.Content, c.Description, c.Builder, c.Order,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapWriteErr(err)
}

func queryDeleteInlineChunk(ctx context.Context, db executor, id string) error {
	return execDelete(ctx, db, `DELETE FROM inline_chunks WHERE id = $1`, id)
}

// execDelete runs a single-row DELETE and reports sql.ErrNoRows when nothing matched.
func execDelete(ctx context.Context, db executor, query, id string) error {
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// searchClause builds a case-insensitive substring match of one placeholder
// against each of the given columns.
func searchClause(placeholder string, columns ...string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, placeholder)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func appendPaging(query string, args []any, limit, offset int, nextArg func() string) (string, []any) {
	if limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET " + nextArg()
		args = append(args, offset)
	}
	return query, args
}
