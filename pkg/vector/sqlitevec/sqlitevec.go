// Package sqlitevec stores memory chunks in a local SQLite file using the
// sqlite-vec vec0 virtual table for cosine KNN search.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/vector"
)

// DefaultCollection is used when Config.Collection is empty.
const DefaultCollection = "chat_responses"

// defaultTopK applies when Query is called with a non-positive topK.
const defaultTopK = 10

var collectionPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Driver implements vector.Driver on SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	dims   uint
	docs   string
	vecs   string
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the SQLite database file, or ":memory:".
	DBPath string

	// Collection names the table pair holding the documents. Several
	// collections can share one file. Defaults to DefaultCollection.
	Collection string

	// Dimensions is the embedding length. A collection keeps the length it
	// was created with; reopening it with another one fails.
	Dimensions uint
}

// NewDriver opens or creates the collection in c.DBPath.
func NewDriver(c Config, log *slog.Logger) (*Driver, error) {
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if !collectionPattern.MatchString(c.Collection) {
		return nil, fmt.Errorf("invalid collection name %q", c.Collection)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// ":memory:" databases are private to their connection.
	db.SetMaxOpenConns(1)

	d := &Driver{
		db:     db,
		dims:   c.Dimensions,
		docs:   c.Collection,
		vecs:   c.Collection + "_vec",
		logger: logger.OrNop(log),
	}

	version, err := d.migrate(c.Collection)
	if err != nil {
		db.Close()
		return nil, err
	}

	d.logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"collection", c.Collection,
		"dimensions", c.Dimensions,
		"vec_version", version,
	)

	return d, nil
}

// migrate creates the collection tables and checks its recorded dimensions.
func (d *Driver) migrate(collection string) (string, error) {
	var version string
	if err := d.db.QueryRow(`SELECT vec_version()`).Scan(&version); err != nil {
		return "", fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS engram_collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL
		)
	`); err != nil {
		return "", fmt.Errorf("creating collections table: %w", err)
	}

	var stored uint
	err := d.db.QueryRow(`SELECT dimensions FROM engram_collections WHERE name = ?`, collection).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := d.db.Exec(`INSERT INTO engram_collections(name, dimensions) VALUES (?, ?)`, collection, d.dims); err != nil {
			return "", fmt.Errorf("registering collection: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("reading collection: %w", err)
	case stored != d.dims:
		return "", fmt.Errorf("collection %s: %w: created with %d, configured %d",
			collection, vector.ErrDimensionMismatch, stored, d.dims)
	}

	// vec0 rows are keyed by integer rowid, so the documents table maps the
	// string chunk ids onto them.
	if _, err := d.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`, d.docs)); err != nil {
		return "", fmt.Errorf("creating documents table: %w", err)
	}

	if _, err := d.db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=cosine)`,
		d.vecs, d.dims,
	)); err != nil {
		return "", fmt.Errorf("creating vec0 table: %w", err)
	}

	return version, nil
}

// Add upserts docs in one transaction.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(doc_id, content, metadata) VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET content = excluded.content, metadata = excluded.metadata
		RETURNING id
	`, d.docs))
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer upsert.Close()

	// vec0 has no UPDATE, so an existing embedding is replaced.
	dropVec, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, d.vecs))
	if err != nil {
		return fmt.Errorf("preparing embedding delete: %w", err)
	}
	defer dropVec.Close()

	putVec, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, d.vecs))
	if err != nil {
		return fmt.Errorf("preparing embedding insert: %w", err)
	}
	defer putVec.Close()

	for _, doc := range docs {
		blob, err := d.serialize(doc.Embedding)
		if err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}

		meta, err := encodeMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}

		var id int64
		if err := upsert.QueryRowContext(ctx, doc.ID, doc.Content, meta).Scan(&id); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}
		if _, err := dropVec.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("replacing embedding for doc %s: %w", doc.ID, err)
		}
		if _, err := putVec.ExecContext(ctx, id, blob); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec", "collection", d.docs, "count", len(docs))
	return nil
}

// Query finds the topK nearest documents to embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	blob, err := d.serialize(embedding)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.doc_id, d.content, d.metadata, v.distance
		FROM %s v
		INNER JOIN %s d ON d.id = v.rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, d.vecs, d.docs), blob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r        vector.QueryResult
			meta     string
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Metadata = decodeMetadata(meta)
		r.Distance = float32(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "collection", d.docs, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs. Unknown IDs are skipped.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.doc_id, d.content, d.metadata, v.embedding
		FROM %s d
		LEFT JOIN %s v ON v.rowid = d.id
		WHERE d.doc_id IN (%s)
	`, d.docs, d.vecs, placeholders(len(ids))), args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]vector.Document, 0, len(ids))
	for rows.Next() {
		var (
			doc  vector.Document
			meta string
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Metadata = decodeMetadata(meta)
		doc.Embedding = deserialize(blob)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	in := placeholders(len(ids))
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE rowid IN (SELECT id FROM %s WHERE doc_id IN (%s))`, d.vecs, d.docs, in,
	), args(ids)...); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE doc_id IN (%s)`, d.docs, in,
	), args(ids)...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted documents from sqlite-vec", "collection", d.docs, "count", len(ids))
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

func (d *Driver) serialize(emb []float32) ([]byte, error) {
	if uint(len(emb)) != d.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(emb), d.dims)
	}
	return sqlite_vec.SerializeFloat32(emb)
}

// deserialize reverses sqlite_vec.SerializeFloat32. A malformed blob yields nil.
func deserialize(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func decodeMetadata(s string) map[string]any {
	m := map[string]any{}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
