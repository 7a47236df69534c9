package domain

import (
	"time"
)

// Project groups documents, conversations and generated files under a single
// owner. A project has zero or one vector collection; the handle is created
// lazily on first ingest and never reassigned.
type Project struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	CollectionHandle string    `json:"collection_handle,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Document is an uploaded source file. ExtractedText is set once the file has
// been loaded; ProcessedAt is set only while the document's current chunks are
// present in the project collection.
type Document struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	FileName      string     `json:"file_name"`
	ContentType   string     `json:"content_type"`
	Size          int64      `json:"size"`
	StorageKey    string     `json:"storage_key"`
	ExtractedText string     `json:"-"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Processed reports whether the document's chunks are currently indexed.
func (d *Document) Processed() bool { return d.ProcessedAt != nil }

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Conversation is an ordered message log scoped to a project.
type Conversation struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single conversation turn. Metadata carries token usage and
// retrieval sources for assistant messages.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Metadata       MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MessageMetadata is the opaque per-message record persisted alongside
// assistant messages.
type MessageMetadata struct {
	TokensUsed int      `json:"tokens_used,omitempty"`
	Sources    []Source `json:"sources,omitempty"`
}

// Source is one retrieval hit attributed to an answer, in rank order.
type Source struct {
	DocumentID     string  `json:"document_id"`
	FileName       string  `json:"filename"`
	ContentPreview string  `json:"content_preview"`
	Score          float64 `json:"score"`
	ChunkIndex     int     `json:"chunk_index"`
}

// ChunkMetadata is the per-chunk descriptive payload stored in the vector
// collection next to the chunk text.
type ChunkMetadata struct {
	FileName     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	ChunkSize    int       `json:"chunk_size"`
	TotalChunks  int       `json:"total_chunks"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChunkPayload duplicates document and project ids so retrieval results carry
// back-pointers without a relational join.
type ChunkPayload struct {
	DocumentID string        `json:"document_id"`
	ProjectID  string        `json:"project_id"`
	Content    string        `json:"content"`
	ChunkIndex int           `json:"chunk_index"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// Point is one (id, vector, payload) record in the vector store.
type Point struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// ScoredPoint is a search hit with its cosine similarity score.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload ChunkPayload
}

// CollectionStats describes the state of one vector collection.
type CollectionStats struct {
	PointsCount  uint64 `json:"points_count"`
	IndexedCount uint64 `json:"indexed_count"`
	Status       string `json:"status"`
}

// IngestResult is returned for each successfully processed document.
type IngestResult struct {
	DocumentID       string        `json:"document_id"`
	ChunksProcessed  int           `json:"chunks_processed"`
	CollectionHandle string        `json:"collection_handle"`
	ProcessingTime   time.Duration `json:"processing_time"`
}

// ProjectIngestResult pairs a document with its ingest outcome; Err is nil on
// success.
type ProjectIngestResult struct {
	DocumentID string        `json:"document_id"`
	Result     *IngestResult `json:"result,omitempty"`
	Err        error         `json:"-"`
}

// QueryAnswer is the result of a RAG query.
type QueryAnswer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	TokensUsed int      `json:"tokens_used"`
}

// EducationalQueryType selects a fixed prompt rewrite for classroom-oriented
// queries.
type EducationalQueryType string

const (
	QueryTypeQuestion    EducationalQueryType = "question"
	QueryTypeSummary     EducationalQueryType = "summary"
	QueryTypeQuiz        EducationalQueryType = "quiz"
	QueryTypeExplanation EducationalQueryType = "explanation"
)

// FileType is the kind of generated educational artifact.
type FileType string

const (
	FileTypeStudyGuide FileType = "study-guide"
	FileTypeQuiz       FileType = "quiz"
	FileTypeSummary    FileType = "summary"
	FileTypeLessonPlan FileType = "lesson-plan"
	FileTypeCustom     FileType = "custom"
)

// Label returns the Portuguese display label used on artifact covers.
func (t FileType) Label() string {
	switch t {
	case FileTypeStudyGuide:
		return "Guia de Estudos"
	case FileTypeQuiz:
		return "Quiz"
	case FileTypeSummary:
		return "Resumo"
	case FileTypeLessonPlan:
		return "Plano de Aula"
	default:
		return "Documento"
	}
}

// FileFormat is the artifact serialization format.
type FileFormat string

const (
	FormatPDF      FileFormat = "pdf"
	FormatMarkdown FileFormat = "markdown"
)

// Extension returns the artifact file extension without a dot.
func (f FileFormat) Extension() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "md"
}

// ContentType returns the download content type for the format.
func (f FileFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/markdown; charset=utf-8"
}

// JobStatus tracks an asynchronous generation job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// GeneratedFile is a versioned artifact produced by the file generator.
// (ProjectID, FileName) is unique.
type GeneratedFile struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	OwnerID        string     `json:"owner_id"`
	FileName       string     `json:"file_name"`
	DisplayName    string     `json:"display_name"`
	Type           FileType   `json:"type"`
	Format         FileFormat `json:"format"`
	CurrentVersion int        `json:"current_version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ContextSource is a snapshot of one retrieval hit used during artifact
// generation.
type ContextSource struct {
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"filename"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// GeneratedFileVersion is an immutable snapshot of a generated file.
// Versions are dense 1..N per file.
type GeneratedFileVersion struct {
	ID             string          `json:"id"`
	FileID         string          `json:"file_id"`
	Version        int             `json:"version"`
	Prompt         string          `json:"prompt"`
	BaseVersion    int             `json:"base_version,omitempty"`
	StorageKey     string          `json:"storage_key,omitempty"`
	Size           int64           `json:"size,omitempty"`
	PageCount      int             `json:"page_count,omitempty"`
	Status         JobStatus       `json:"status"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	GenerationTime time.Duration   `json:"generation_time,omitempty"`
	Sources        []ContextSource `json:"sources,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// GenerationProgress is emitted on the owner's progress channel while a file
// generation job runs.
type GenerationProgress struct {
	FileID   string    `json:"file_id"`
	Version  int       `json:"version"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}
