// Package pgvector provides a vector.Driver backed by PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/engram/pkg/vector"
)

// DefaultTableName is used when Config.TableName is empty.
const DefaultTableName = "engram_documents"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds configuration for the pgvector driver.
type Config struct {
	// ConnString is a PostgreSQL connection string or URL.
	ConnString string

	// TableName is the table documents are stored in.
	TableName string

	// Dimensions is the size of the embedding column.
	Dimensions uint
}

// Driver implements vector.Driver using PostgreSQL and pgvector.
type Driver struct {
	pool       *pgxpool.Pool
	table      string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver connects to PostgreSQL and ensures the extension and table exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.ConnString == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("pgvector embedding dimensions cannot be 0, must be configured")
	}
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if !tableNamePattern.MatchString(c.TableName) {
		return nil, fmt.Errorf("invalid table name %q", c.TableName)
	}

	pool, err := pgxpool.New(ctx, c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", vector.ErrConnection, err)
	}

	if err := initSchema(ctx, pool, c.TableName, c.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("pgvector vector driver initialized",
		"table", c.TableName,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		pool:       pool,
		table:      c.TableName,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool, table string, dims uint) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, table, dims),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Add upserts documents.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stmt := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4::vector)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, d.table)

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("doc %s: %w: got %d, want %d", doc.ID, vector.ErrDimensionMismatch, len(doc.Embedding), d.dimensions)
		}

		meta, err := json.Marshal(orEmpty(doc.Metadata))
		if err != nil {
			return fmt.Errorf("encode metadata for doc %s: %w", doc.ID, err)
		}

		if _, err := tx.Exec(ctx, stmt, doc.ID, doc.Content, string(meta), FormatVector(doc.Embedding)); err != nil {
			return fmt.Errorf("upsert doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	d.logger.Debug("added documents to pgvector",
		"table", d.table,
		"count", len(docs),
	)

	return nil
}

// Query returns the topK nearest documents by cosine distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("query: %w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, metadata::text, embedding <=> $1::vector AS distance
		 FROM %s ORDER BY distance ASC, created_at ASC LIMIT $2`, d.table),
		FormatVector(embedding),
		topK,
	)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	results := make([]vector.QueryResult, 0, topK)
	for rows.Next() {
		var (
			r        vector.QueryResult
			meta     string
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		r.Metadata = decodeMetadata(meta)
		r.Distance = float32(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}

	d.logger.Debug("queried pgvector",
		"table", d.table,
		"results", len(results),
	)

	return results, nil
}

// Get retrieves documents by ID.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, metadata::text, embedding::text FROM %s WHERE id = ANY($1)`, d.table),
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	docs := make([]vector.Document, 0, len(ids))
	for rows.Next() {
		var (
			doc       vector.Document
			meta, emb string
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &emb); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.Metadata = decodeMetadata(meta)
		doc.Embedding, err = ParseVector(emb)
		if err != nil {
			return nil, fmt.Errorf("doc %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}

	return docs, nil
}

// Delete removes documents by ID.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, d.table), ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}

	d.logger.Debug("deleted documents from pgvector",
		"table", d.table,
		"count", len(ids),
	)

	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func decodeMetadata(s string) map[string]any {
	m := map[string]any{}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}
