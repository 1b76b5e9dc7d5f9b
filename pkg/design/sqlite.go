package design

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the lite-mode document store. It is what the server runs on
// when DATABASE_URL is not set.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		uploaded_at TEXT NOT NULL,
		payload JSON
	);
	CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Document, error) {
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents ORDER BY uploaded_at DESC`)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE id = ?`,
		NormalizeID(id))
	return scanDocumentRow(row.Scan)
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) ([]Document, error) {
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE name = ?`, name)
}

func (s *SQLiteStore) SearchByName(ctx context.Context, substr string) ([]Document, error) {
	pattern := "%" + strings.ToLower(substr) + "%"
	return s.queryMany(ctx,
		`SELECT id, name, uploaded_at, payload FROM documents WHERE lower(name) LIKE ?`, pattern)
}

func (s *SQLiteStore) Insert(ctx context.Context, doc *Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.UploadedAt = time.Now().UTC()

	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, uploaded_at, payload) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.UploadedAt.Format(timeLayout), string(payload))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id, name string, payload map[string]any) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET name = ?, uploaded_at = ?, payload = ? WHERE id = ?`,
		name, time.Now().UTC().Format(timeLayout), string(data), NormalizeID(id))
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, NormalizeID(id))
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryMany(ctx context.Context, query string, args ...any) ([]Document, error) {
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

// scanDocumentRow scans one documents row via the given Scan func, shared by
// both store backends.
func scanDocumentRow(scan func(...any) error) (*Document, error) {
	var (
		id          string
		name        string
		uploadedAt  string
		payloadJSON sql.NullString
	)
	if err := scan(&id, &name, &uploadedAt, &payloadJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var payload map[string]any
	if payloadJSON.Valid && payloadJSON.String != "" {
		_ = json.Unmarshal([]byte(payloadJSON.String), &payload)
	}

	return &Document{
		ID:         id,
		Name:       name,
		UploadedAt: parseTime(uploadedAt),
		Payload:    payload,
	}, nil
}

// timeLayout is RFC 3339 with fixed-width nanoseconds so the stored text
// sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
