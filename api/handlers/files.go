package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mentoria-ai/mentoria/internal/filegen"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type generateFileRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	OwnerID     string `json:"owner_id"`
	Type        string `json:"type"`
	Format      string `json:"format"`
}

// GenerateFile starts an asynchronous generation job and returns the file
// record immediately.
func (d Deps) GenerateFile(c *gin.Context) {
	var req generateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileType := domain.FileType(req.Type)
	if fileType == "" {
		fileType = domain.FileTypeCustom
	}
	format := domain.FileFormat(req.Format)
	if format == "" {
		format = domain.FormatPDF
	}
	if format != domain.FormatPDF && format != domain.FormatMarkdown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown format: " + req.Format})
		return
	}

	file, err := d.Files.CreateFile(c.Request.Context(), filegen.CreateParams{
		ProjectID:   c.Param("id"),
		OwnerID:     req.OwnerID,
		Prompt:      req.Prompt,
		DisplayName: req.DisplayName,
		Type:        fileType,
		Format:      format,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, file)
}

type editFileRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	BaseVersion int    `json:"base_version"`
}

// EditFile creates a new version derived from an existing one.
func (d Deps) EditFile(c *gin.Context) {
	var req editFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	version, err := d.Files.NewVersion(c.Request.Context(), c.Param("fileID"), req.Prompt, req.BaseVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, version)
}

func (d Deps) GetFile(c *gin.Context) {
	file, err := d.Files.Get(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (d Deps) ListFileVersions(c *gin.Context) {
	versions, err := d.Files.ListVersions(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// DownloadFile streams the current version, or ?version=N for an explicit
// one.
func (d Deps) DownloadFile(c *gin.Context) {
	version := 0
	if raw := c.Query("version"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
			return
		}
		version = n
	}

	download, err := d.Files.Download(c.Request.Context(), c.Param("fileID"), version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Data(http.StatusOK, download.ContentType, download.Data)
}

func (d Deps) CancelFileVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}
	if err := d.Files.CancelVersion(c.Request.Context(), c.Param("fileID"), version); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (d Deps) DeleteFile(c *gin.Context) {
	if err := d.Files.DeleteFile(c.Request.Context(), c.Param("fileID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
