// Package sqlite keeps a collection in a local SQLite file. Vectors are
// stored as little-endian float32 BLOBs and searched by a full scan, which is
// plenty for a catalog of a few thousand tools.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"biorag/internal/domain"
	"biorag/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name      TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL,
	distance  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	collection   TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	id           TEXT NOT NULL,
	identity_key TEXT NOT NULL,
	payload      TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_points_identity ON points(collection, identity_key);
`

// Store is a SQLite-backed domain.VectorStore bound to one collection.
type Store struct {
	db         *sql.DB
	path       string
	collection string
}

// Open opens (or creates) the database at path and binds it to collection.
func Open(path, collection string) (*Store, error) {
	if collection == "" {
		return nil, errors.New("sqlite: collection name is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: path, collection: collection}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) meta(ctx context.Context) (int, domain.Distance, error) {
	var dim int
	var dist string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, distance FROM collections WHERE name = ?`, s.collection).Scan(&dim, &dist)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", domain.ErrCollectionMissing
	}
	if err != nil {
		return 0, "", err
	}
	return dim, domain.Distance(dist), nil
}

func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	_, _, err := s.meta(ctx)
	if errors.Is(err, domain.ErrCollectionMissing) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) CreateCollection(ctx context.Context, dimension int, distance domain.Distance) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if distance == "" {
		distance = domain.Cosine
	}
	dim, _, err := s.meta(ctx)
	switch {
	case err == nil && dim != dimension:
		return fmt.Errorf("%w: collection exists with size %d, requested %d", vectorstore.ErrDimensionMismatch, dim, dimension)
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrCollectionMissing):
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections(name, dimension, distance) VALUES(?, ?, ?)`, s.collection, dimension, string(distance))
	return err
}

func (s *Store) DropCollection(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, s.collection); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return err
	}
	return tx.Commit()
}

// Scroll compares case-sensitively, like the remote store: instr() for
// substring mode and = for exact mode.
func (s *Store) Scroll(ctx context.Context, filter domain.TextMatch, limit int) ([]domain.Point, error) {
	if _, _, err := s.meta(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, payload, embedding FROM points WHERE collection = ?`
	args := []any{s.collection}
	if filter.Field != "" {
		column := "json_extract(payload, ?)"
		args = append(args, "$."+filter.Field)
		if filter.Field == domain.FieldIdentityKey {
			column = "identity_key"
			args = args[:1]
		}
		if filter.Mode == domain.MatchExact {
			query += " AND " + column + " = ?"
		} else {
			query += " AND instr(" + column + ", ?) > 0"
		}
		args = append(args, filter.Value)
	}
	query += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredPoint, error) {
	dim, distance, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	if err := vectorstore.CheckDimension(vector, dim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, embedding FROM points WHERE collection = ? ORDER BY rowid`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []domain.ScoredPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.ScoredPoint{Point: p, Score: vectorstore.Score(distance, p.Vector, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.Rank(distance, hits, topK), nil
}

// Upsert writes the batch in one transaction; it either fully applies or not at all.
func (s *Store) Upsert(ctx context.Context, points []domain.Point) error {
	dim, _, err := s.meta(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points(collection, id, identity_key, payload, embedding) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			identity_key = excluded.identity_key,
			payload = excluded.payload,
			embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if p.ID == "" {
			return errors.New("point without id")
		}
		if err := vectorstore.CheckDimension(p.Vector, dim); err != nil {
			return err
		}
		payload, err := json.Marshal(p.Record.Payload())
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, p.ID, p.Record.IdentityKey, string(payload), encodeVector(p.Vector)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if _, _, err := s.meta(ctx); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

func scanPoint(rows *sql.Rows) (domain.Point, error) {
	var (
		id, payload string
		blob        []byte
	)
	if err := rows.Scan(&id, &payload, &blob); err != nil {
		return domain.Point{}, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return domain.Point{}, fmt.Errorf("point %s: %w", id, err)
	}
	rec, err := domain.RecordFromPayload(m)
	if err != nil {
		return domain.Point{}, fmt.Errorf("point %s: %w", id, err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return domain.Point{}, fmt.Errorf("point %s: %w", id, err)
	}
	return domain.Point{ID: id, Vector: vec, Record: rec}, nil
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
