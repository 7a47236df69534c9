package mentoria

import (
	"fmt"

	"github.com/mentoria-ai/mentoria/api/handlers"
	"github.com/mentoria-ai/mentoria/api/websocket"
	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/internal/embedder"
	"github.com/mentoria-ai/mentoria/internal/filegen"
	"github.com/mentoria-ai/mentoria/internal/ingest"
	"github.com/mentoria-ai/mentoria/internal/llm"
	"github.com/mentoria-ai/mentoria/internal/memory"
	"github.com/mentoria-ai/mentoria/internal/objectstore"
	"github.com/mentoria-ai/mentoria/internal/pdfrender"
	"github.com/mentoria-ai/mentoria/internal/rag"
	"github.com/mentoria-ai/mentoria/internal/splitter"
	"github.com/mentoria-ai/mentoria/internal/store"
	"github.com/mentoria-ai/mentoria/internal/vectorstore"
)

// app holds the fully wired service graph shared by the CLI commands.
type app struct {
	store       *store.Store
	objects     *objectstore.FSStore
	vectors     *vectorstore.QdrantStore
	coordinator *ingest.Coordinator
	engine      *rag.Engine
	memory      *memory.Manager
	files       *filegen.Service
	progress    *filegen.ProgressHub
	chat        *llm.OpenAIChatModel
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	objects, err := objectstore.New(cfg.Storage)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open object storage: %w", err)
	}

	vectors, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	embed := embedder.NewOpenAI(cfg.OpenAI)
	chat := llm.NewOpenAI(cfg.OpenAI)

	split := splitter.New(splitter.Config{
		ChunkSize: cfg.RAG.ChunkSize,
		Overlap:   cfg.RAG.ChunkOverlap,
	})

	mem := memory.NewManager(st.Messages(), chat, cfg.Memory)
	engine := rag.NewEngine(st.Projects(), embed, vectors, chat, mem, cfg.RAG)
	coordinator := ingest.NewCoordinator(st.Projects(), st.Documents(), objects, vectors, embed, split)
	progress := filegen.NewProgressHub()
	files := filegen.NewService(st.GeneratedFiles(), st.Projects(), objects, embed, vectors, chat,
		pdfrender.New(), progress, cfg.RAG)

	return &app{
		store:       st,
		objects:     objects,
		vectors:     vectors,
		coordinator: coordinator,
		engine:      engine,
		memory:      mem,
		files:       files,
		progress:    progress,
		chat:        chat,
	}, nil
}

func (a *app) handlerDeps() handlers.Deps {
	return handlers.Deps{
		Projects:  a.store.Projects(),
		Documents: a.store.Documents(),
		Objects:   a.objects,
		Vectors:   a.vectors,
		Ingest:    a.coordinator,
		Engine:    a.engine,
		Files:     a.files,
	}
}

func (a *app) websocketConfig() websocket.Config {
	return websocket.Config{
		Conversations: a.store.Conversations(),
		Messages:      a.store.Messages(),
		Engine:        a.engine,
		Memory:        a.memory,
		Chat:          a.chat,
		Progress:      a.progress,
	}
}

func (a *app) Close() {
	a.files.Wait()
	if err := a.vectors.Close(); err != nil {
		fmt.Printf("Warning: failed to close vector store: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}
