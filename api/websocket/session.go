// Package websocket drives the streaming query flow over a single
// bidirectional connection.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkoukk/tiktoken-go"

	"github.com/mentoria-ai/mentoria/internal/memory"
	"github.com/mentoria-ai/mentoria/internal/rag"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

const (
	sendBuffer   = 256
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second

	titlePrefix    = "Chat: "
	titleMaxLength = 50
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireConn is the subset of *websocket.Conn a session uses.
type wireConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// ProgressSource hands out per-owner feeds of generation progress. The
// cancel func stops the feed and closes the channel.
type ProgressSource interface {
	Subscribe(ownerID string) (<-chan domain.GenerationProgress, func())
}

// Config wires a session's collaborators. Authorize is the external
// ownership hook; a nil Authorize admits every project.
type Config struct {
	Conversations domain.ConversationRepo
	Messages      domain.MessageRepo
	Engine        *rag.Engine
	Memory        *memory.Manager
	Chat          domain.ChatModel
	Progress      ProgressSource
	Authorize     func(ctx context.Context, projectID string) error
}

// Handler returns the gin endpoint that upgrades and runs a session.
func Handler(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to upgrade connection"})
			return
		}
		NewSession(cfg, conn).Run(c.Request.Context())
	}
}

// Session serializes one client's queries: one goroutine reads, one writes,
// and query handling runs inline with the read loop.
type Session struct {
	cfg    Config
	conn   wireConn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func NewSession(cfg Config, conn wireConn) *Session {
	return &Session{
		cfg:    cfg,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
		logger: log.WithComponent("websocket"),
	}
}

// Run blocks until the client disconnects. Closing the connection cancels
// any in-flight query.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump()
	defer s.close()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.emit(EventError, ErrorData{Message: "invalid message format"})
			continue
		}

		switch msg.Type {
		case "start":
			s.handleStart(ctx, msg)
		case "list_conversations":
			s.handleListConversations(ctx, msg)
		case "load_conversation":
			s.handleLoadConversation(ctx, msg)
		case "watch_files":
			s.handleWatchFiles(ctx, msg)
		default:
			s.emit(EventError, ErrorData{Message: "unknown message type"})
		}
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

// emit queues an event. A full buffer means the client cannot keep up; the
// session aborts rather than block the query flow.
func (s *Session) emit(eventType string, data any) bool {
	frame := newEvent(eventType, data)
	select {
	case s.send <- frame:
		return true
	case <-s.closed:
		return false
	default:
		s.logger.Warn("client cannot keep up, aborting session")
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.TextMessage,
			newEvent(EventError, ErrorData{Message: "slow_consumer"}))
		s.close()
		return false
	}
}

func (s *Session) status(stage string) bool {
	return s.emit(EventStatus, StatusData{Stage: stage})
}

func (s *Session) handleStart(ctx context.Context, msg ClientMessage) {
	if msg.ProjectID == "" || strings.TrimSpace(msg.Message) == "" {
		s.emit(EventError, ErrorData{Message: "project_id and message are required"})
		return
	}

	if !s.status(StageValidating) {
		return
	}
	if s.cfg.Authorize != nil {
		if err := s.cfg.Authorize(ctx, msg.ProjectID); err != nil {
			s.emit(EventError, ErrorData{Message: "project access denied"})
			return
		}
	}

	if !s.status(StageConversation) {
		return
	}
	conversation, err := s.resolveConversation(ctx, msg)
	if err != nil {
		s.fail(err)
		return
	}

	if !s.status(StageMemory) {
		return
	}
	// Build the memory window before the new user turn is persisted; the
	// prompt appends it separately and must not carry it twice.
	memoryMessages, err := s.cfg.Memory.Build(ctx, conversation.ID)
	if err != nil {
		s.fail(err)
		return
	}

	userMessage := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        msg.Message,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.cfg.Messages.Append(ctx, userMessage); err != nil {
		s.fail(err)
		return
	}
	s.emit(EventUserMessage, userMessage)

	if !s.status(StageEmbedding) || !s.status(StageSearch) {
		return
	}
	hits, err := s.cfg.Engine.Retrieve(ctx, msg.ProjectID, msg.Message)
	if err != nil {
		s.fail(err)
		return
	}
	sources := rag.SourcesFromHits(hits)

	if !s.status(StageGenerating) {
		return
	}
	s.emit(EventStreamStart, StreamStartData{Sources: sources})

	var full strings.Builder
	err = s.cfg.Chat.Stream(ctx, rag.BuildMessages(memoryMessages, hits, msg.Message), nil,
		func(delta string) error {
			full.WriteString(delta)
			if !s.emit(EventStreamChunk, StreamChunkData{Content: delta, FullContent: full.String()}) {
				return context.Canceled
			}
			return nil
		})
	if err != nil || ctx.Err() != nil {
		// Disconnects and stream failures leave no partial assistant message.
		if err != nil && ctx.Err() == nil {
			s.fail(err)
		}
		return
	}

	if !s.status(StageSaving) {
		return
	}
	assistant := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversation.ID,
		Role:           domain.RoleAssistant,
		Content:        full.String(),
		Metadata: domain.MessageMetadata{
			TokensUsed: countTokens(full.String()),
			Sources:    sources,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cfg.Messages.Append(ctx, assistant); err != nil {
		s.fail(err)
		return
	}

	s.emit(EventStreamComplete, StreamCompleteData{
		MessageID:  assistant.ID,
		Content:    assistant.Content,
		TokensUsed: assistant.Metadata.TokensUsed,
		Sources:    sources,
	})
	s.status(StageCompleted)
}

func (s *Session) resolveConversation(ctx context.Context, msg ClientMessage) (*domain.Conversation, error) {
	if msg.ConversationID != "" {
		return s.cfg.Conversations.Get(ctx, msg.ConversationID)
	}

	now := time.Now().UTC()
	conversation := &domain.Conversation{
		ID:        uuid.New().String(),
		ProjectID: msg.ProjectID,
		Title:     conversationTitle(msg.Message),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cfg.Conversations.Create(ctx, conversation); err != nil {
		return nil, err
	}
	s.emit(EventConversationCreated, ConversationCreatedData{ID: conversation.ID, Title: conversation.Title})
	return conversation, nil
}

func (s *Session) handleListConversations(ctx context.Context, msg ClientMessage) {
	if msg.ProjectID == "" {
		s.emit(EventError, ErrorData{Message: "project_id is required"})
		return
	}
	conversations, err := s.cfg.Conversations.ListByProject(ctx, msg.ProjectID)
	if err != nil {
		s.fail(err)
		return
	}
	s.emit(EventConversationList, ConversationListData{Conversations: conversations})
}

func (s *Session) handleLoadConversation(ctx context.Context, msg ClientMessage) {
	if msg.ConversationID == "" {
		s.emit(EventError, ErrorData{Message: "conversation_id is required"})
		return
	}
	conversation, err := s.cfg.Conversations.Get(ctx, msg.ConversationID)
	if err != nil {
		s.fail(err)
		return
	}
	messages, err := s.cfg.Messages.ListByConversation(ctx, msg.ConversationID)
	if err != nil {
		s.fail(err)
		return
	}
	s.emit(EventConversation, ConversationData{Conversation: *conversation, Messages: messages})
}

// handleWatchFiles forwards the owner's generation progress feed onto the
// session until the client disconnects.
func (s *Session) handleWatchFiles(ctx context.Context, msg ClientMessage) {
	if s.cfg.Progress == nil {
		s.emit(EventError, ErrorData{Message: "file progress is not available"})
		return
	}
	if msg.OwnerID == "" {
		s.emit(EventError, ErrorData{Message: "owner_id is required"})
		return
	}

	feed, cancel := s.cfg.Progress.Subscribe(msg.OwnerID)
	go func() {
		defer cancel()
		for {
			select {
			case progress, ok := <-feed:
				if !ok {
					return
				}
				if !s.emit(EventGenerationProgress, progress) {
					return
				}
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			}
		}
	}()
}

func (s *Session) fail(err error) {
	if domain.CodeOf(err) == domain.CodeCancelled {
		return
	}
	s.logger.Warn("session request failed", "error", err)
	s.emit(EventError, ErrorData{Message: err.Error()})
}

func conversationTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxLength {
		return titlePrefix + message
	}
	return titlePrefix + string(runes[:titleMaxLength]) + "..."
}

// countTokens prefers the real tokenizer and falls back to the coarse
// estimate when the encoding is unavailable (e.g. offline).
func countTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return memory.EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}
