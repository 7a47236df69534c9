package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentoria-ai/mentoria/internal/loader"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// maxUploadSize caps document uploads at 50 MiB.
const maxUploadSize = 50 << 20

// UploadDocument stores the raw bytes, records the document and ingests it
// synchronously.
func (d Deps) UploadDocument(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := d.Projects.Get(ctx, projectID); err != nil {
		respondError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload limit"})
		return
	}
	if !loader.SupportedExtension(header.Filename) {
		respondError(c, domain.WrapErrorf(domain.ErrUnsupportedFormat, "unsupported file type: %s", header.Filename))
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docID := uuid.New().String()
	storageKey := fmt.Sprintf("projects/%s/documents/%s/%s", projectID, docID, header.Filename)
	if err := d.Objects.Upload(ctx, data, storageKey); err != nil {
		respondError(c, err)
		return
	}

	doc := &domain.Document{
		ID:          docID,
		ProjectID:   projectID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		StorageKey:  storageKey,
		CreatedAt:   time.Now().UTC(),
	}
	if err := d.Documents.Create(ctx, doc); err != nil {
		respondError(c, err)
		return
	}

	result, err := d.Ingest.Ingest(ctx, docID)
	if err != nil {
		// The document stays queryable via reingest; report the failure.
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc, "ingest": result})
}

func (d Deps) ListDocuments(c *gin.Context) {
	documents, err := d.Documents.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": documents})
}

func (d Deps) ReingestDocument(c *gin.Context) {
	result, err := d.Ingest.Reingest(c.Request.Context(), c.Param("docID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngestProject processes every unprocessed document in the project.
func (d Deps) IngestProject(c *gin.Context) {
	results, err := d.Ingest.IngestProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	type itemResult struct {
		DocumentID string               `json:"document_id"`
		Result     *domain.IngestResult `json:"result,omitempty"`
		Error      string               `json:"error,omitempty"`
	}
	items := make([]itemResult, len(results))
	for i, r := range results {
		items[i] = itemResult{DocumentID: r.DocumentID, Result: r.Result}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// DeleteDocument drops the document's chunks, stored bytes and record.
func (d Deps) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	docID := c.Param("docID")

	if err := d.Ingest.Delete(ctx, docID); err != nil {
		respondError(c, err)
		return
	}
	if err := d.Documents.Delete(ctx, docID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
