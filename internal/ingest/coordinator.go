// Package ingest drives documents from uploaded to processed: load, split,
// embed, upsert, mark.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mentoria-ai/mentoria/internal/loader"
	"github.com/mentoria-ai/mentoria/internal/splitter"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

type Coordinator struct {
	projects  domain.ProjectRepo
	documents domain.DocumentRepo
	objects   domain.ObjectStore
	vectors   domain.VectorStore
	embedder  domain.Embedder
	splitter  *splitter.Splitter

	docLocks    *keyedMutex
	collections singleflight.Group
	logger      *slog.Logger
}

func NewCoordinator(
	projects domain.ProjectRepo,
	documents domain.DocumentRepo,
	objects domain.ObjectStore,
	vectors domain.VectorStore,
	embedder domain.Embedder,
	split *splitter.Splitter,
) *Coordinator {
	return &Coordinator{
		projects:  projects,
		documents: documents,
		objects:   objects,
		vectors:   vectors,
		embedder:  embedder,
		splitter:  split,
		docLocks:  newKeyedMutex(),
		logger:    log.WithComponent("ingest"),
	}
}

// Ingest processes one document end to end. Re-running on a processed
// document returns ErrAlreadyProcessed without touching anything.
func (c *Coordinator) Ingest(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	c.docLocks.Lock(documentID)
	defer c.docLocks.Unlock(documentID)
	return c.ingestLocked(ctx, documentID)
}

func (c *Coordinator) ingestLocked(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	started := time.Now()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Processed() {
		return nil, domain.WrapErrorf(domain.ErrAlreadyProcessed, "document %s already processed", documentID)
	}

	if doc.ExtractedText == "" {
		raw, err := c.objects.Get(ctx, doc.StorageKey)
		if err != nil {
			return nil, err
		}
		text, err := loader.Extract(ctx, raw, doc.FileName)
		if err != nil {
			return nil, err
		}
		if err := c.documents.SetExtractedText(ctx, doc.ID, text); err != nil {
			return nil, err
		}
		doc.ExtractedText = text
	}

	handle, err := c.ensureCollection(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}

	chunks := c.splitter.Split(doc.ExtractedText)
	if len(chunks) == 0 {
		return nil, domain.WrapErrorf(domain.ErrEmptyContent, "document %s produced no chunks", documentID)
	}

	vectors, err := c.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}

	points := buildPoints(doc, chunks, vectors)

	// Retries re-run with fresh point ids, so clear any prior batch first.
	if err := c.vectors.DeleteByDocument(ctx, handle, doc.ID); err != nil {
		return nil, err
	}
	if err := c.vectors.Upsert(ctx, handle, points); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := c.documents.SetProcessedAt(ctx, doc.ID, &now); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{
		DocumentID:       doc.ID,
		ChunksProcessed:  len(chunks),
		CollectionHandle: handle,
		ProcessingTime:   time.Since(started),
	}
	c.logger.Info("document ingested",
		"document_id", doc.ID, "project_id", doc.ProjectID,
		"chunks", len(chunks), "duration", result.ProcessingTime)
	return result, nil
}

// Reingest drops the document's points and extracted text, then ingests from
// the raw bytes again.
func (c *Coordinator) Reingest(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	c.docLocks.Lock(documentID)
	defer c.docLocks.Unlock(documentID)

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	project, err := c.projects.Get(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CollectionHandle != "" {
		if err := c.vectors.DeleteByDocument(ctx, project.CollectionHandle, doc.ID); err != nil {
			return nil, err
		}
	}
	if err := c.documents.SetProcessedAt(ctx, doc.ID, nil); err != nil {
		return nil, err
	}
	if err := c.documents.SetExtractedText(ctx, doc.ID, ""); err != nil {
		return nil, err
	}
	return c.ingestLocked(ctx, documentID)
}

// Delete removes the document's points and raw bytes. The caller owns the
// document record itself.
func (c *Coordinator) Delete(ctx context.Context, documentID string) error {
	c.docLocks.Lock(documentID)
	defer c.docLocks.Unlock(documentID)

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	project, err := c.projects.Get(ctx, doc.ProjectID)
	if err != nil {
		return err
	}
	if project.CollectionHandle != "" {
		if err := c.vectors.DeleteByDocument(ctx, project.CollectionHandle, doc.ID); err != nil {
			return err
		}
	}
	return c.objects.Delete(ctx, doc.StorageKey)
}

// IngestProject ingests every unprocessed document sequentially. A document
// failure is recorded and the loop continues.
func (c *Coordinator) IngestProject(ctx context.Context, projectID string) ([]domain.ProjectIngestResult, error) {
	docs, err := c.documents.ListUnprocessed(ctx, projectID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ProjectIngestResult, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return results, domain.WrapError(domain.ErrCancelled, err)
		}
		res, err := c.Ingest(ctx, doc.ID)
		if err != nil {
			c.logger.Warn("document ingest failed",
				"document_id", doc.ID, "project_id", projectID, "error", err)
			results = append(results, domain.ProjectIngestResult{DocumentID: doc.ID, Err: err})
			continue
		}
		results = append(results, domain.ProjectIngestResult{DocumentID: doc.ID, Result: res})
	}
	return results, nil
}

// ensureCollection resolves the project's collection handle, creating the
// collection on first use. singleflight keeps concurrent first ingests from
// racing two collections into existence.
func (c *Coordinator) ensureCollection(ctx context.Context, projectID string) (string, error) {
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.CollectionHandle != "" {
		return project.CollectionHandle, nil
	}

	handle, err, _ := c.collections.Do(projectID, func() (any, error) {
		current, err := c.projects.Get(ctx, projectID)
		if err != nil {
			return "", err
		}
		if current.CollectionHandle != "" {
			return current.CollectionHandle, nil
		}
		handle, err := c.vectors.CreateCollection(ctx, projectID, c.embedder.Dimension())
		if err != nil {
			return "", err
		}
		if err := c.projects.SetCollectionHandle(ctx, projectID, handle); err != nil {
			return "", err
		}
		return handle, nil
	})
	if err != nil {
		return "", err
	}
	return handle.(string), nil
}

func buildPoints(doc *domain.Document, chunks []string, vectors [][]float32) []domain.Point {
	now := time.Now().UTC()
	points := make([]domain.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = domain.Point{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: domain.ChunkPayload{
				DocumentID: doc.ID,
				ProjectID:  doc.ProjectID,
				Content:    chunk,
				ChunkIndex: i,
				Metadata: domain.ChunkMetadata{
					FileName:     doc.FileName,
					OriginalName: doc.FileName,
					MimeType:     doc.ContentType,
					ChunkSize:    len(chunk),
					TotalChunks:  len(chunks),
					CreatedAt:    now,
				},
			},
		}
	}
	return points
}
