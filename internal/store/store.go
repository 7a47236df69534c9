// Package store is the SQLite-backed relational store for projects,
// documents, conversations and generated files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mentoria-ai/mentoria/internal/config"
)

// Store owns the database handle. The per-entity repositories share it.
type Store struct {
	db *sql.DB
}

func New(cfg config.DBConfig) (*Store, error) {
	return Open(cfg.Path)
}

// Open opens (and migrates) the database at path. ":memory:" is accepted for
// tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite tolerates a single writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Projects() *ProjectRepo             { return &ProjectRepo{db: s.db} }
func (s *Store) Documents() *DocumentRepo           { return &DocumentRepo{db: s.db} }
func (s *Store) Conversations() *ConversationRepo   { return &ConversationRepo{db: s.db} }
func (s *Store) Messages() *MessageRepo             { return &MessageRepo{db: s.db} }
func (s *Store) GeneratedFiles() *GeneratedFileRepo { return &GeneratedFileRepo{db: s.db} }

func (s *Store) migrate(ctx context.Context) error {
	queries := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			collection_handle TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			storage_key TEXT NOT NULL DEFAULT '',
			extracted_text TEXT NOT NULL DEFAULT '',
			processed_at TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
			UNIQUE (conversation_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS generated_files (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			type TEXT NOT NULL,
			format TEXT NOT NULL,
			current_version INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			UNIQUE (project_id, file_name)
		)`,
		`CREATE TABLE IF NOT EXISTS generated_file_versions (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			base_version INTEGER NOT NULL DEFAULT 0,
			storage_key TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			generation_time_ms INTEGER NOT NULL DEFAULT 0,
			sources TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			FOREIGN KEY (file_id) REFERENCES generated_files(id) ON DELETE CASCADE,
			UNIQUE (file_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_project_id ON conversations(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_generated_files_project_id ON generated_files(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_file_versions_file_id ON generated_file_versions(file_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

// Timestamps are stored as RFC 3339 text so rows stay portable and readable.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := decodeTime(s.String)
	return &t
}
