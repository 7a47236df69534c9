package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/internal/filegen"
	"github.com/mentoria-ai/mentoria/internal/memory"
	"github.com/mentoria-ai/mentoria/internal/rag"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {} // direct handler tests never read
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeConversations struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
}

func (f *fakeConversations) Create(ctx context.Context, c *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.conversations[c.ID] = &cp
	return nil
}

func (f *fakeConversations) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "conversation %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) ListByProject(ctx context.Context, projectID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversations) Delete(ctx context.Context, id string) error { return nil }

type fakeMessages struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (f *fakeMessages) Append(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeMessages) ListByConversation(ctx context.Context, id string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.messages {
		if m.ConversationID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeProjects struct{ project *domain.Project }

func (f *fakeProjects) Create(ctx context.Context, p *domain.Project) error { return nil }
func (f *fakeProjects) Get(ctx context.Context, id string) (*domain.Project, error) {
	if f.project == nil {
		return nil, domain.ErrNotFound
	}
	cp := *f.project
	return &cp, nil
}
func (f *fakeProjects) SetCollectionHandle(ctx context.Context, id, handle string) error { return nil }
func (f *fakeProjects) Delete(ctx context.Context, id string) error                      { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}
func (fakeEmbedder) Dimension() int { return 1 }

type fakeVectors struct{ hits []domain.ScoredPoint }

func (f *fakeVectors) CreateCollection(ctx context.Context, projectID string, dim int) (string, error) {
	return "project_" + projectID, nil
}
func (f *fakeVectors) Upsert(ctx context.Context, handle string, points []domain.Point) error {
	return nil
}
func (f *fakeVectors) Search(ctx context.Context, handle string, vector []float32, k int, threshold float64) ([]domain.ScoredPoint, error) {
	return f.hits, nil
}
func (f *fakeVectors) DeleteByDocument(ctx context.Context, handle, documentID string) error {
	return nil
}
func (f *fakeVectors) DeleteCollection(ctx context.Context, handle string) error { return nil }
func (f *fakeVectors) Stats(ctx context.Context, handle string) (*domain.CollectionStats, error) {
	return &domain.CollectionStats{}, nil
}

type fakeChat struct {
	response string
	cancel   context.CancelFunc // when set, Stream cancels mid-flight

	mu      sync.Mutex
	prompts [][]domain.ChatMessage
}

func (f *fakeChat) Chat(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions) (*domain.ChatResult, error) {
	return &domain.ChatResult{Content: f.response}, nil
}

func (f *fakeChat) Stream(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions, fn func(string) error) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, append([]domain.ChatMessage(nil), messages...))
	f.mu.Unlock()

	words := strings.SplitAfter(f.response, " ")
	for i, w := range words {
		if f.cancel != nil && i == len(words)/2 {
			f.cancel()
			return ctx.Err()
		}
		if err := fn(w); err != nil {
			return err
		}
	}
	return nil
}

type sessionFixture struct {
	session       *Session
	conn          *fakeConn
	conversations *fakeConversations
	messages      *fakeMessages
}

func newSessionFixture(project *domain.Project, hits []domain.ScoredPoint, chat *fakeChat) *sessionFixture {
	conversations := &fakeConversations{conversations: map[string]*domain.Conversation{}}
	messages := &fakeMessages{}
	projects := &fakeProjects{project: project}

	memCfg := config.MemoryConfig{MaxTokens: 1500, MaxMessages: 20, SummaryThreshold: 10, EntityThreshold: 2}
	ragCfg := config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, MaxChunks: 5, SimilarityThreshold: 0.4}
	mem := memory.NewManager(messages, chat, memCfg)
	engine := rag.NewEngine(projects, fakeEmbedder{}, &fakeVectors{hits: hits}, chat, mem, ragCfg)

	conn := &fakeConn{}
	session := NewSession(Config{
		Conversations: conversations,
		Messages:      messages,
		Engine:        engine,
		Memory:        mem,
		Chat:          chat,
	}, conn)

	return &sessionFixture{session: session, conn: conn, conversations: conversations, messages: messages}
}

// drainEvents decodes every queued frame without blocking.
func drainEvents(t *testing.T, s *Session) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case frame := <-s.send:
			var e Event
			require.NoError(t, json.Unmarshal(frame, &e))
			out = append(out, e)
		default:
			return out
		}
	}
}

func eventTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func stagesOf(events []Event) []string {
	var out []string
	for _, e := range events {
		if e.Type != EventStatus {
			continue
		}
		data, _ := json.Marshal(e.Data)
		var status StatusData
		_ = json.Unmarshal(data, &status)
		out = append(out, status.Stage)
	}
	return out
}

func TestHandleStartFullFlow(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia", CollectionHandle: "project_p1"}
	hits := []domain.ScoredPoint{{
		ID: "pt-1", Score: 0.9,
		Payload: domain.ChunkPayload{
			DocumentID: "doc-1", Content: "A fotossíntese converte luz em energia.",
			Metadata: domain.ChunkMetadata{FileName: "bio.pdf"},
		},
	}}
	chat := &fakeChat{response: "A fotossíntese é o processo de conversão de luz."}
	f := newSessionFixture(project, hits, chat)

	f.session.handleStart(context.Background(), ClientMessage{
		Type: "start", ProjectID: "p1", Message: "o que é fotossíntese?",
	})

	events := drainEvents(t, f.session)
	types := eventTypes(events)

	assert.Contains(t, types, EventConversationCreated)
	assert.Contains(t, types, EventUserMessage)
	assert.Contains(t, types, EventStreamStart)
	assert.Contains(t, types, EventStreamChunk)
	assert.Contains(t, types, EventStreamComplete)
	assert.Equal(t,
		[]string{StageValidating, StageConversation, StageMemory, StageEmbedding, StageSearch, StageGenerating, StageSaving, StageCompleted},
		stagesOf(events))

	// Both turns persisted, user first.
	require.Len(t, f.messages.messages, 2)
	assert.Equal(t, domain.RoleUser, f.messages.messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, f.messages.messages[1].Role)
	assert.Equal(t, chat.response, f.messages.messages[1].Content)
	assert.Positive(t, f.messages.messages[1].Metadata.TokensUsed)
	require.Len(t, f.messages.messages[1].Metadata.Sources, 1)
	assert.Equal(t, "doc-1", f.messages.messages[1].Metadata.Sources[0].DocumentID)
}

func TestHandleStartReusesConversation(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "resposta"}
	f := newSessionFixture(project, nil, chat)

	existing := &domain.Conversation{ID: "c-1", ProjectID: "p1", Title: "Chat: antiga"}
	require.NoError(t, f.conversations.Create(context.Background(), existing))

	f.session.handleStart(context.Background(), ClientMessage{
		Type: "start", ProjectID: "p1", Message: "continue", ConversationID: "c-1",
	})

	events := drainEvents(t, f.session)
	assert.NotContains(t, eventTypes(events), EventConversationCreated)
	require.Len(t, f.messages.messages, 2)
	assert.Equal(t, "c-1", f.messages.messages[0].ConversationID)
}

func TestHandleStartPromptCarriesNewTurnOnce(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "resposta"}
	f := newSessionFixture(project, nil, chat)
	ctx := context.Background()

	existing := &domain.Conversation{ID: "c-1", ProjectID: "p1", Title: "Chat: antiga"}
	require.NoError(t, f.conversations.Create(ctx, existing))
	require.NoError(t, f.messages.Append(ctx, &domain.Message{ID: "m-1", ConversationID: "c-1", Role: domain.RoleUser, Content: "primeira pergunta"}))
	require.NoError(t, f.messages.Append(ctx, &domain.Message{ID: "m-2", ConversationID: "c-1", Role: domain.RoleAssistant, Content: "primeira resposta"}))

	const question = "qual é a segunda pergunta?"
	f.session.handleStart(ctx, ClientMessage{
		Type: "start", ProjectID: "p1", Message: question, ConversationID: "c-1",
	})

	require.NotEmpty(t, chat.prompts)
	prompt := chat.prompts[len(chat.prompts)-1]

	occurrences := 0
	var contents []string
	for _, m := range prompt {
		contents = append(contents, m.Content)
		if m.Role == "user" && m.Content == question {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences, "new user turn must enter the prompt exactly once")

	// Earlier turns still reach the model through the memory window.
	assert.Contains(t, contents, "primeira pergunta")
	assert.Contains(t, contents, "primeira resposta")
}

func TestHandleStartNotIndexedEmitsError(t *testing.T) {
	project := &domain.Project{ID: "p1"} // no collection handle
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)

	f.session.handleStart(context.Background(), ClientMessage{
		Type: "start", ProjectID: "p1", Message: "pergunta",
	})

	events := drainEvents(t, f.session)
	assert.Contains(t, eventTypes(events), EventError)
	// The user message was persisted before the failure; no assistant reply.
	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, domain.RoleUser, f.messages.messages[0].Role)
}

func TestHandleStartDisconnectDropsAssistantMessage(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	ctx, cancel := context.WithCancel(context.Background())
	chat := &fakeChat{response: "uma resposta longa com várias palavras", cancel: cancel}
	f := newSessionFixture(project, nil, chat)

	f.session.handleStart(ctx, ClientMessage{
		Type: "start", ProjectID: "p1", Message: "pergunta",
	})

	// Only the user message survives a mid-stream disconnect.
	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, domain.RoleUser, f.messages.messages[0].Role)

	events := drainEvents(t, f.session)
	assert.NotContains(t, eventTypes(events), EventStreamComplete)
}

func TestHandleStartAuthorizeDenied(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)
	f.session.cfg.Authorize = func(ctx context.Context, projectID string) error {
		return domain.ErrNotFound
	}

	f.session.handleStart(context.Background(), ClientMessage{
		Type: "start", ProjectID: "p1", Message: "pergunta",
	})

	events := drainEvents(t, f.session)
	assert.Contains(t, eventTypes(events), EventError)
	assert.Empty(t, f.messages.messages)
}

func TestSlowConsumerAborts(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)

	// Fill the send buffer so the next emit cannot queue.
	for i := 0; i < sendBuffer; i++ {
		f.session.send <- []byte("{}")
	}

	ok := f.session.emit(EventStatus, StatusData{Stage: StageGenerating})
	assert.False(t, ok)
	assert.True(t, f.conn.closed)

	// The abort frame went straight to the wire.
	require.NotEmpty(t, f.conn.frames)
	assert.Contains(t, string(f.conn.frames[len(f.conn.frames)-1]), "slow_consumer")
}

func TestListAndLoadConversations(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)
	ctx := context.Background()

	require.NoError(t, f.conversations.Create(ctx, &domain.Conversation{ID: "c-1", ProjectID: "p1", Title: "Chat: a"}))
	require.NoError(t, f.messages.Append(ctx, &domain.Message{ID: "m-1", ConversationID: "c-1", Role: domain.RoleUser, Content: "oi"}))

	f.session.handleListConversations(ctx, ClientMessage{ProjectID: "p1"})
	f.session.handleLoadConversation(ctx, ClientMessage{ConversationID: "c-1"})

	events := drainEvents(t, f.session)
	types := eventTypes(events)
	assert.Contains(t, types, EventConversationList)
	assert.Contains(t, types, EventConversation)
}

func TestWatchFilesForwardsOwnerProgress(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)

	hub := filegen.NewProgressHub()
	f.session.cfg.Progress = hub

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.session.handleWatchFiles(ctx, ClientMessage{Type: "watch_files", OwnerID: "owner-1"})

	hub.Notify("owner-1", domain.GenerationProgress{FileID: "f1", Version: 1, Status: domain.StatusGenerating})
	hub.Notify("owner-2", domain.GenerationProgress{FileID: "foreign", Version: 1, Status: domain.StatusGenerating})
	hub.Notify("owner-1", domain.GenerationProgress{FileID: "f1", Version: 1, Status: domain.StatusCompleted, Progress: 100})

	var events []Event
	require.Eventually(t, func() bool {
		events = append(events, drainEvents(t, f.session)...)
		return len(events) >= 2
	}, time.Second, 10*time.Millisecond)

	var fileIDs []string
	var statuses []domain.JobStatus
	for _, e := range events {
		require.Equal(t, EventGenerationProgress, e.Type)
		raw, err := json.Marshal(e.Data)
		require.NoError(t, err)
		var p domain.GenerationProgress
		require.NoError(t, json.Unmarshal(raw, &p))
		fileIDs = append(fileIDs, p.FileID)
		statuses = append(statuses, p.Status)
	}
	assert.NotContains(t, fileIDs, "foreign")
	assert.Equal(t, []domain.JobStatus{domain.StatusGenerating, domain.StatusCompleted}, statuses)
}

func TestWatchFilesRequiresOwner(t *testing.T) {
	project := &domain.Project{ID: "p1", CollectionHandle: "project_p1"}
	chat := &fakeChat{response: "x"}
	f := newSessionFixture(project, nil, chat)
	f.session.cfg.Progress = filegen.NewProgressHub()

	f.session.handleWatchFiles(context.Background(), ClientMessage{Type: "watch_files"})

	events := drainEvents(t, f.session)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "Chat: oi", conversationTitle("oi"))

	long := strings.Repeat("pergunta ", 20)
	title := conversationTitle(long)
	assert.True(t, strings.HasPrefix(title, "Chat: "))
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Equal(t, len("Chat: ")+titleMaxLength+len("..."), len([]rune(title)))
}
