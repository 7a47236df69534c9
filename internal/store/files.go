package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type GeneratedFileRepo struct {
	db *sql.DB
}

const fileColumns = `id, project_id, owner_id, file_name, display_name, type, format, current_version, created_at, updated_at`

func (r *GeneratedFileRepo) Create(ctx context.Context, f *domain.GeneratedFile) error {
	query := `INSERT INTO generated_files (` + fileColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.ProjectID, f.OwnerID, f.FileName, f.DisplayName,
		string(f.Type), string(f.Format), f.CurrentVersion,
		encodeTime(f.CreatedAt), encodeTime(f.UpdatedAt))
	return err
}

func (r *GeneratedFileRepo) Get(ctx context.Context, id string) (*domain.GeneratedFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM generated_files WHERE id = ?`, id)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "generated file %s not found", id)
	}
	return f, err
}

func (r *GeneratedFileRepo) GetByName(ctx context.Context, projectID, fileName string) (*domain.GeneratedFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM generated_files WHERE project_id = ? AND file_name = ?`,
		projectID, fileName)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "file %s not found in project %s", fileName, projectID)
	}
	return f, err
}

func (r *GeneratedFileRepo) ListByProject(ctx context.Context, projectID string) ([]domain.GeneratedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM generated_files WHERE project_id = ? ORDER BY created_at, id`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.GeneratedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (r *GeneratedFileRepo) SetCurrentVersion(ctx context.Context, id string, version int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE generated_files SET current_version = ?, updated_at = ? WHERE id = ?`,
		version, encodeTime(nowUTC()), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.WrapErrorf(domain.ErrNotFound, "generated file %s not found", id)
	}
	return nil
}

func (r *GeneratedFileRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM generated_files WHERE id = ?`, id)
	return err
}

const versionColumns = `id, file_id, version, prompt, base_version, storage_key, size, page_count, status, error_message, generation_time_ms, sources, created_at`

func (r *GeneratedFileRepo) CreateVersion(ctx context.Context, v *domain.GeneratedFileVersion) error {
	sources, err := json.Marshal(v.Sources)
	if err != nil {
		return err
	}
	query := `INSERT INTO generated_file_versions (` + versionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		v.ID, v.FileID, v.Version, v.Prompt, v.BaseVersion, v.StorageKey,
		v.Size, v.PageCount, string(v.Status), v.ErrorMessage,
		v.GenerationTime.Milliseconds(), string(sources), encodeTime(v.CreatedAt))
	return err
}

func (r *GeneratedFileRepo) GetVersion(ctx context.Context, fileID string, version int) (*domain.GeneratedFileVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM generated_file_versions WHERE file_id = ? AND version = ?`,
		fileID, version)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "version %d of file %s not found", version, fileID)
	}
	return v, err
}

// UpdateVersion rewrites the mutable fields of a version row as its job
// progresses. Identity fields (file, version, prompt) never change.
func (r *GeneratedFileRepo) UpdateVersion(ctx context.Context, v *domain.GeneratedFileVersion) error {
	sources, err := json.Marshal(v.Sources)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE generated_file_versions
		 SET storage_key = ?, size = ?, page_count = ?, status = ?, error_message = ?,
		     generation_time_ms = ?, sources = ?
		 WHERE file_id = ? AND version = ?`,
		v.StorageKey, v.Size, v.PageCount, string(v.Status), v.ErrorMessage,
		v.GenerationTime.Milliseconds(), string(sources), v.FileID, v.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.WrapErrorf(domain.ErrNotFound, "version %d of file %s not found", v.Version, v.FileID)
	}
	return nil
}

func (r *GeneratedFileRepo) ListVersions(ctx context.Context, fileID string) ([]domain.GeneratedFileVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM generated_file_versions WHERE file_id = ? ORDER BY version`,
		fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []domain.GeneratedFileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

func scanFile(row rowScanner) (*domain.GeneratedFile, error) {
	var f domain.GeneratedFile
	var typ, format, createdAt, updatedAt string
	err := row.Scan(&f.ID, &f.ProjectID, &f.OwnerID, &f.FileName, &f.DisplayName,
		&typ, &format, &f.CurrentVersion, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.Type = domain.FileType(typ)
	f.Format = domain.FileFormat(format)
	f.CreatedAt = decodeTime(createdAt)
	f.UpdatedAt = decodeTime(updatedAt)
	return &f, nil
}

func scanVersion(row rowScanner) (*domain.GeneratedFileVersion, error) {
	var v domain.GeneratedFileVersion
	var status, sources, createdAt string
	var generationMS int64
	err := row.Scan(&v.ID, &v.FileID, &v.Version, &v.Prompt, &v.BaseVersion,
		&v.StorageKey, &v.Size, &v.PageCount, &status, &v.ErrorMessage,
		&generationMS, &sources, &createdAt)
	if err != nil {
		return nil, err
	}
	v.Status = domain.JobStatus(status)
	v.GenerationTime = time.Duration(generationMS) * time.Millisecond
	v.CreatedAt = decodeTime(createdAt)
	if err := json.Unmarshal([]byte(sources), &v.Sources); err != nil {
		return nil, err
	}
	return &v, nil
}
