package domain

import (
	"context"
	"time"
)

// ProjectRepo is the relational store of projects.
type ProjectRepo interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	// SetCollectionHandle persists the lazily created collection handle. It
	// fails if a different handle is already set.
	SetCollectionHandle(ctx context.Context, id, handle string) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepo is the relational store of documents.
type DocumentRepo interface {
	Create(ctx context.Context, d *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	ListByProject(ctx context.Context, projectID string) ([]Document, error)
	ListUnprocessed(ctx context.Context, projectID string) ([]Document, error)
	SetExtractedText(ctx context.Context, id, text string) error
	// SetProcessedAt sets or clears (nil) the processed timestamp.
	SetProcessedAt(ctx context.Context, id string, at *time.Time) error
	Delete(ctx context.Context, id string) error
}

// ConversationRepo is the relational store of conversations.
type ConversationRepo interface {
	Create(ctx context.Context, c *Conversation) error
	Get(ctx context.Context, id string) (*Conversation, error)
	ListByProject(ctx context.Context, projectID string) ([]Conversation, error)
	Delete(ctx context.Context, id string) error
}

// MessageRepo is the relational store of conversation messages. Messages are
// totally ordered by insertion within a conversation.
type MessageRepo interface {
	Append(ctx context.Context, m *Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
}

// GeneratedFileRepo is the relational store of generated files and versions.
type GeneratedFileRepo interface {
	Create(ctx context.Context, f *GeneratedFile) error
	Get(ctx context.Context, id string) (*GeneratedFile, error)
	// GetByName looks a file up by its (project, slug) unique key; returns
	// ErrNotFound when absent.
	GetByName(ctx context.Context, projectID, fileName string) (*GeneratedFile, error)
	ListByProject(ctx context.Context, projectID string) ([]GeneratedFile, error)
	SetCurrentVersion(ctx context.Context, id string, version int) error
	Delete(ctx context.Context, id string) error

	CreateVersion(ctx context.Context, v *GeneratedFileVersion) error
	GetVersion(ctx context.Context, fileID string, version int) (*GeneratedFileVersion, error)
	UpdateVersion(ctx context.Context, v *GeneratedFileVersion) error
	ListVersions(ctx context.Context, fileID string) ([]GeneratedFileVersion, error)
}
