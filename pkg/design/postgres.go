package design

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresStore is the document store used when DATABASE_URL is set. It
// shares the lite-mode schema; uploaded_at is stored as fixed-width RFC 3339
// text so both backends scan identically.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open Postgres connection. The caller owns the
// connection lifecycle up to Close.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the documents table.
func (s *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		uploaded_at TEXT NOT NULL,
		payload JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]Document, error) {
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents ORDER BY uploaded_at DESC`)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE id = $1`,
		NormalizeID(id))
	return scanDocumentRow(row.Scan)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) ([]Document, error) {
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE name = $1`, name)
}

func (s *PostgresStore) SearchByName(ctx context.Context, substr string) ([]Document, error) {
	pattern := "%" + strings.ToLower(substr) + "%"
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE lower(name) LIKE $1`, pattern)
}

func (s *PostgresStore) Insert(ctx context.Context, doc *Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.UploadedAt = time.Now().UTC()

	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, uploaded_at, payload) VALUES ($1, $2, $3, $4)`,
		doc.ID, doc.Name, doc.UploadedAt.Format(timeLayout), string(payload))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, name string, payload map[string]any) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET name = $1, uploaded_at = $2, payload = $3 WHERE id = $4`,
		name, time.Now().UTC().Format(timeLayout), string(data), NormalizeID(id))
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, NormalizeID(id))
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
