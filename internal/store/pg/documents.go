// Package pg provides the Postgres-backed document store consulted when
// issuing and redeeming signed download links.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a row in documents_document. Encrypted columns are handled
// by fieldcrypt and never read through this store.
type Document struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store wraps the SQL used by the link endpoints.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle; used by tests and by binaries that
// share one pool across components.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		select id, owner_id, file_name, content_type, storage_key, uploaded_at
		from documents_document where id=$1
	`, id).Scan(&doc.ID, &doc.OwnerID, &doc.FileName, &doc.ContentType, &doc.StorageKey, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// CreateDocument inserts a document record and fills in its assigned id.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) error {
	doc.UploadedAt = time.Now().UTC()
	return s.db.QueryRowContext(ctx, `
		insert into documents_document(owner_id, file_name, content_type, storage_key, uploaded_at)
		values ($1,$2,$3,$4,$5)
		returning id
	`, doc.OwnerID, doc.FileName, doc.ContentType, doc.StorageKey, doc.UploadedAt).Scan(&doc.ID)
}
