package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type DocumentRepo struct {
	db *sql.DB
}

const documentColumns = `id, project_id, file_name, content_type, size, storage_key, extracted_text, processed_at, created_at`

func (r *DocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.ProjectID, d.FileName, d.ContentType, d.Size, d.StorageKey,
		d.ExtractedText, encodeNullTime(d.ProcessedAt), encodeTime(d.CreatedAt))
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "document %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Document, error) {
	return r.list(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE project_id = ? ORDER BY created_at, id`,
		projectID)
}

func (r *DocumentRepo) ListUnprocessed(ctx context.Context, projectID string) ([]domain.Document, error) {
	return r.list(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = ? AND processed_at IS NULL ORDER BY created_at, id`,
		projectID)
}

func (r *DocumentRepo) list(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) SetExtractedText(ctx context.Context, id, text string) error {
	return r.update(ctx, `UPDATE documents SET extracted_text = ? WHERE id = ?`, text, id)
}

func (r *DocumentRepo) SetProcessedAt(ctx context.Context, id string, at *time.Time) error {
	return r.update(ctx, `UPDATE documents SET processed_at = ? WHERE id = ?`, encodeNullTime(at), id)
}

func (r *DocumentRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.WrapErrorf(domain.ErrNotFound, "document not found")
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	var processedAt sql.NullString
	var createdAt string
	err := row.Scan(&d.ID, &d.ProjectID, &d.FileName, &d.ContentType, &d.Size,
		&d.StorageKey, &d.ExtractedText, &processedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	d.ProcessedAt = decodeNullTime(processedAt)
	d.CreatedAt = decodeTime(createdAt)
	return &d, nil
}
