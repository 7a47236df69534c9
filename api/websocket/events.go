package websocket

import (
	"encoding/json"
	"time"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// Event is the server-to-client frame. Data shape depends on Type.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Event types emitted by a session.
const (
	EventStatus              = "status"
	EventConversationCreated = "conversation_created"
	EventUserMessage         = "user_message"
	EventStreamStart         = "stream_start"
	EventStreamChunk         = "stream_chunk"
	EventStreamComplete      = "stream_complete"
	EventConversationList    = "conversation_list"
	EventConversation        = "conversation"
	EventGenerationProgress  = "generation_progress"
	EventError               = "error"
)

// Status stages, in emission order for a query.
const (
	StageValidating   = "validating"
	StageConversation = "conversation"
	StageMemory       = "memory"
	StageEmbedding    = "embedding"
	StageSearch       = "search"
	StageGenerating   = "generating"
	StageSaving       = "saving"
	StageCompleted    = "completed"
)

type StatusData struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

type ConversationCreatedData struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type StreamStartData struct {
	Sources []domain.Source `json:"sources_preview"`
}

type StreamChunkData struct {
	Content     string `json:"content"`
	FullContent string `json:"full_content"`
}

type StreamCompleteData struct {
	MessageID  string          `json:"message_id"`
	Content    string          `json:"content"`
	TokensUsed int             `json:"tokens_used"`
	Sources    []domain.Source `json:"sources"`
}

type ConversationListData struct {
	Conversations []domain.Conversation `json:"conversations"`
}

type ConversationData struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// ClientMessage is the client-to-server frame.
type ClientMessage struct {
	Type           string `json:"type"` // start, list_conversations, load_conversation, watch_files
	ProjectID      string `json:"project_id,omitempty"`
	Message        string `json:"message,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	OwnerID        string `json:"owner_id,omitempty"`
}

func newEvent(eventType string, data any) []byte {
	frame, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		// Event payloads are plain structs; marshaling cannot realistically
		// fail, but never let a frame drop silently.
		frame, _ = json.Marshal(Event{Type: EventError, Timestamp: time.Now().UTC(),
			Data: ErrorData{Message: "internal encoding error"}})
	}
	return frame
}
