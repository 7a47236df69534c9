package domain

import "context"

// Embedder maps text to fixed-dimension float vectors.
type Embedder interface {
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension is the native vector dimension of the configured model.
	Dimension() int
}

// ChatMessage is one turn handed to the chat model.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// TokenUsage is the provider-reported token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult is a completed (non-streaming) chat response.
type ChatResult struct {
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
}

// ChatOptions tune a single chat request. Zero values mean provider defaults.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// ChatModel is the external chat completion provider.
type ChatModel interface {
	Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (*ChatResult, error)
	// Stream yields incremental content deltas to fn. A non-nil error from fn
	// aborts the stream.
	Stream(ctx context.Context, messages []ChatMessage, opts *ChatOptions, fn func(delta string) error) error
}

// VectorStore is the gateway to the external vector database. Collections
// are per-project and use cosine distance.
type VectorStore interface {
	// CreateCollection is idempotent; it returns the existing handle when the
	// project already has a collection.
	CreateCollection(ctx context.Context, projectID string, dim int) (string, error)
	Upsert(ctx context.Context, handle string, points []Point) error
	// Search returns up to k matches with score >= threshold, sorted by
	// descending score; ties break on lower chunk index, then lower id.
	Search(ctx context.Context, handle string, vector []float32, k int, threshold float64) ([]ScoredPoint, error)
	// DeleteByDocument removes every point whose payload references the
	// document; deleting an absent document is a no-op.
	DeleteByDocument(ctx context.Context, handle, documentID string) error
	DeleteCollection(ctx context.Context, handle string) error
	Stats(ctx context.Context, handle string) (*CollectionStats, error)
}

// ObjectStore holds raw uploads and generated artifacts.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, src, dst string) error
}

// PDFBlockKind discriminates layout blocks handed to the PDF engine.
type PDFBlockKind string

const (
	BlockHeading   PDFBlockKind = "heading"
	BlockParagraph PDFBlockKind = "paragraph"
	BlockBullet    PDFBlockKind = "bullet"
	BlockNumbered  PDFBlockKind = "numbered"
	BlockPageBreak PDFBlockKind = "page_break"
)

// PDFSpan is a run of text with optional bold emphasis.
type PDFSpan struct {
	Text string
	Bold bool
}

// PDFBlock is one layout unit of a rendered artifact.
type PDFBlock struct {
	Kind  PDFBlockKind
	Level int // heading level 1..3; list ordinal for numbered items
	Spans []PDFSpan
}

// PDFDocument is the layout-engine input for one artifact.
type PDFDocument struct {
	Title    string
	Subtitle string
	Blocks   []PDFBlock
}

// PDFEngine is the external PDF layout engine.
type PDFEngine interface {
	Render(ctx context.Context, doc *PDFDocument) (data []byte, pages int, err error)
}
