package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	OwnerID     string `json:"owner_id"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
}

func (d Deps) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:          uuid.New().String(),
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Subject:     req.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.Projects.Create(c.Request.Context(), project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (d Deps) GetProject(c *gin.Context) {
	project, err := d.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes the project, its vector collection, its stored
// document bytes and (via FK cascade) all dependent rows.
func (d Deps) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	project, err := d.Projects.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	documents, err := d.Documents.ListByProject(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, doc := range documents {
		if doc.StorageKey != "" {
			if err := d.Objects.Delete(ctx, doc.StorageKey); err != nil {
				respondError(c, err)
				return
			}
		}
	}

	if project.CollectionHandle != "" {
		if err := d.Vectors.DeleteCollection(ctx, project.CollectionHandle); err != nil {
			respondError(c, err)
			return
		}
	}

	// Generated artifacts live in object storage; the relational cascade
	// alone would orphan them.
	if err := d.Files.DeleteProjectFiles(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	if err := d.Projects.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ProjectStatus reports document counts and vector collection stats.
func (d Deps) ProjectStatus(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	project, err := d.Projects.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	documents, err := d.Documents.ListByProject(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	processed := 0
	for i := range documents {
		if documents[i].Processed() {
			processed++
		}
	}

	status := gin.H{
		"project_id":          project.ID,
		"documents_total":     len(documents),
		"documents_processed": processed,
		"indexed":             project.CollectionHandle != "",
	}
	if project.CollectionHandle != "" {
		stats, err := d.Vectors.Stats(ctx, project.CollectionHandle)
		if err != nil {
			respondError(c, err)
			return
		}
		status["collection"] = stats
	}
	c.JSON(http.StatusOK, status)
}
