package store

import (
	"context"
	"database/sql"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type ProjectRepo struct {
	db *sql.DB
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (id, owner_id, name, description, subject, collection_handle, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, p.Subject, p.CollectionHandle,
		encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt))
	return err
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT id, owner_id, name, description, subject, collection_handle, created_at, updated_at
			  FROM projects WHERE id = ?`

	var p domain.Project
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Subject, &p.CollectionHandle,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "project %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = decodeTime(createdAt)
	p.UpdatedAt = decodeTime(updatedAt)
	return &p, nil
}

// SetCollectionHandle records the lazily created collection. The guard keeps
// a project bound to at most one collection for its lifetime.
func (r *ProjectRepo) SetCollectionHandle(ctx context.Context, id, handle string) error {
	query := `UPDATE projects SET collection_handle = ?, updated_at = ?
			  WHERE id = ? AND (collection_handle = '' OR collection_handle = ?)`
	res, err := r.db.ExecContext(ctx, query, handle, encodeTime(nowUTC()), id, handle)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.WrapErrorf(domain.ErrVectorStoreCorrupt,
			"project %s already bound to a different collection", id)
	}
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}
