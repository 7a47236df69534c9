// Package handlers implements the REST endpoints for projects, documents,
// queries and generated files.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentoria-ai/mentoria/internal/filegen"
	"github.com/mentoria-ai/mentoria/internal/ingest"
	"github.com/mentoria-ai/mentoria/internal/rag"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// Deps wires the handlers to the service layer.
type Deps struct {
	Projects  domain.ProjectRepo
	Documents domain.DocumentRepo
	Objects   domain.ObjectStore
	Vectors   domain.VectorStore
	Ingest    *ingest.Coordinator
	Engine    *rag.Engine
	Files     *filegen.Service
}

// respondError maps stable error codes onto HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.CodeOf(err) {
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeAlreadyProcessed, domain.CodeNotIndexed, domain.CodeVectorStoreCorrupt:
		status = http.StatusConflict
	case domain.CodeUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case domain.CodeEmptyContent:
		status = http.StatusUnprocessableEntity
	case domain.CodeEmbeddingUnavailable, domain.CodeVectorStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": domain.CodeOf(err)})
}
