package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	query := `INSERT INTO conversations (id, project_id, title, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ProjectID, c.Title, encodeTime(c.CreatedAt), encodeTime(c.UpdatedAt))
	return err
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT id, project_id, title, created_at, updated_at FROM conversations WHERE id = ?`

	var c domain.Conversation
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ProjectID, &c.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "conversation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = decodeTime(createdAt)
	c.UpdatedAt = decodeTime(updatedAt)
	return &c, nil
}

func (r *ConversationRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Conversation, error) {
	query := `SELECT id, project_id, title, created_at, updated_at FROM conversations
			  WHERE project_id = ? ORDER BY updated_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = decodeTime(createdAt)
		c.UpdatedAt = decodeTime(updatedAt)
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	return err
}

type MessageRepo struct {
	db *sql.DB
}

// Append inserts the message at the end of the conversation and bumps the
// conversation's updated_at. Ordering is a per-conversation sequence assigned
// inside the transaction.
func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		m.ConversationID).Scan(&seq)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, seq, string(m.Role), m.Content, string(metadata), encodeTime(m.CreatedAt))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		encodeTime(nowUTC()), m.ConversationID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `SELECT id, conversation_id, role, content, metadata, created_at
			  FROM messages WHERE conversation_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role, metadata, createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &metadata, &createdAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, err
		}
		m.CreatedAt = decodeTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
