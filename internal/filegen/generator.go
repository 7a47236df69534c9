// Package filegen generates versioned educational artifacts (study guides,
// quizzes, summaries, lesson plans) from RAG-gathered context.
package filegen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

// Notifier receives progress events for an owner's running jobs.
type Notifier interface {
	Notify(ownerID string, progress domain.GenerationProgress)
}

// NopNotifier drops progress events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, domain.GenerationProgress) {}

type CreateParams struct {
	ProjectID   string
	OwnerID     string
	Prompt      string
	DisplayName string
	Type        domain.FileType
	Format      domain.FileFormat
}

type Service struct {
	files    domain.GeneratedFileRepo
	projects domain.ProjectRepo
	objects  domain.ObjectStore
	embedder domain.Embedder
	vectors  domain.VectorStore
	chat     domain.ChatModel
	pdf      domain.PDFEngine
	notifier Notifier
	cfg      config.RAGConfig
	logger   *slog.Logger
	jobs     sync.WaitGroup
}

func NewService(
	files domain.GeneratedFileRepo,
	projects domain.ProjectRepo,
	objects domain.ObjectStore,
	embedder domain.Embedder,
	vectors domain.VectorStore,
	chat domain.ChatModel,
	pdf domain.PDFEngine,
	notifier Notifier,
	cfg config.RAGConfig,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		files:    files,
		projects: projects,
		objects:  objects,
		embedder: embedder,
		vectors:  vectors,
		chat:     chat,
		pdf:      pdf,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.WithComponent("filegen"),
	}
}

// Wait blocks until all launched generation jobs finish.
func (s *Service) Wait() { s.jobs.Wait() }

// CreateFile creates a new generated file and launches its first version, or
// delegates to NewVersion when the (project, slug) pair already exists.
func (s *Service) CreateFile(ctx context.Context, params CreateParams) (*domain.GeneratedFile, error) {
	fileName := Slug(params.DisplayName)

	existing, err := s.files.GetByName(ctx, params.ProjectID, fileName)
	if err == nil {
		if _, err := s.NewVersion(ctx, existing.ID, params.Prompt, 0); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if domain.CodeOf(err) != domain.CodeNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	file := &domain.GeneratedFile{
		ID:             uuid.New().String(),
		ProjectID:      params.ProjectID,
		OwnerID:        params.OwnerID,
		FileName:       fileName,
		DisplayName:    params.DisplayName,
		Type:           params.Type,
		Format:         params.Format,
		CurrentVersion: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	version := &domain.GeneratedFileVersion{
		ID:        uuid.New().String(),
		FileID:    file.ID,
		Version:   1,
		Prompt:    params.Prompt,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
	if err := s.files.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	s.launch(file, version, "")
	return file, nil
}

// NewVersion creates the next version of an existing file. When the base
// version's content is retrievable the job becomes a true edit; otherwise it
// regenerates from scratch.
func (s *Service) NewVersion(ctx context.Context, fileID, editPrompt string, baseVersion int) (*domain.GeneratedFileVersion, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	next := file.CurrentVersion + 1
	base := baseVersion
	if base == 0 {
		base = file.CurrentVersion
	}

	baseContent := s.baseContent(ctx, fileID, base)

	version := &domain.GeneratedFileVersion{
		ID:          uuid.New().String(),
		FileID:      file.ID,
		Version:     next,
		Prompt:      editPrompt,
		BaseVersion: base,
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.files.CreateVersion(ctx, version); err != nil {
		return nil, err
	}
	if err := s.files.SetCurrentVersion(ctx, file.ID, next); err != nil {
		return nil, err
	}

	s.launch(file, version, baseContent)
	return version, nil
}

// baseContent loads the markdown of a prior version from its metadata
// sibling. Missing content degrades to a fresh generation.
func (s *Service) baseContent(ctx context.Context, fileID string, version int) string {
	v, err := s.files.GetVersion(ctx, fileID, version)
	if err != nil || v.StorageKey == "" {
		return ""
	}
	data, err := s.objects.Get(ctx, metadataKey(fileID, version))
	if err != nil {
		return ""
	}
	var meta artifactMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return meta.Content
}

func (s *Service) launch(file *domain.GeneratedFile, version *domain.GeneratedFileVersion, baseContent string) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		// Jobs outlive the request that spawned them.
		s.run(context.Background(), file, version, baseContent)
	}()
}

func (s *Service) run(ctx context.Context, file *domain.GeneratedFile, version *domain.GeneratedFileVersion, baseContent string) {
	started := time.Now()
	s.progress(file, version, domain.StatusGenerating, 0, "")

	err := s.generate(ctx, file, version, baseContent, started)
	if err != nil {
		s.logger.Warn("file generation failed",
			"file_id", file.ID, "version", version.Version, "error", err)
		version.Status = domain.StatusFailed
		version.ErrorMessage = err.Error()
		version.GenerationTime = time.Since(started)
		if updErr := s.files.UpdateVersion(ctx, version); updErr != nil {
			s.logger.Error("failed to record generation failure", "file_id", file.ID, "error", updErr)
		}
		s.progress(file, version, domain.StatusFailed, 0, err.Error())
		return
	}
	s.progress(file, version, domain.StatusCompleted, 100, "")
}

func (s *Service) generate(ctx context.Context, file *domain.GeneratedFile, version *domain.GeneratedFileVersion, baseContent string, started time.Time) error {
	project, err := s.projects.Get(ctx, file.ProjectID)
	if err != nil {
		return err
	}

	sources, contextBlock := s.gatherContext(ctx, project, version.Prompt)

	prompt := RenderTemplate(string(file.Type), TemplateInput{
		Prompt:      version.Prompt,
		Context:     contextBlock,
		ProjectName: project.Name,
		Subject:     project.Subject,
		BaseContent: baseContent,
	})

	result, err := s.chat.Chat(ctx, []domain.ChatMessage{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return err
	}
	content := strings.TrimSpace(result.Content)
	if content == "" {
		return domain.WrapErrorf(domain.ErrModelReturnedEmpty, "generation for file %s returned no content", file.ID)
	}

	data, pages, err := s.materialize(ctx, file, version, content)
	if err != nil {
		return err
	}

	key := artifactKey(file.ID, version.Version, file.Format)
	if err := s.objects.Upload(ctx, data, key); err != nil {
		return err
	}
	if err := s.writeMetadata(ctx, file, version, content, sources); err != nil {
		return err
	}

	// A concurrent cancel wins over a late completion.
	if current, err := s.files.GetVersion(ctx, file.ID, version.Version); err == nil && current.Status == domain.StatusFailed {
		return fmt.Errorf("version %d was cancelled", version.Version)
	}

	version.StorageKey = key
	version.Size = int64(len(data))
	version.PageCount = pages
	version.Status = domain.StatusCompleted
	version.Sources = sources
	version.GenerationTime = time.Since(started)
	return s.files.UpdateVersion(ctx, version)
}

// gatherContext runs the prompt-derived retrieval. Failures and empty
// projects both yield empty context; generation proceeds regardless.
func (s *Service) gatherContext(ctx context.Context, project *domain.Project, prompt string) ([]domain.ContextSource, string) {
	if project.CollectionHandle == "" {
		return nil, ""
	}
	terms := SearchTerms(prompt)
	if terms == "" {
		return nil, ""
	}

	vector, err := s.embedder.EmbedQuery(ctx, terms)
	if err != nil {
		s.logger.Debug("context embedding failed, generating without context", "error", err)
		return nil, ""
	}
	hits, err := s.vectors.Search(ctx, project.CollectionHandle, vector, 5, s.cfg.SimilarityThreshold)
	if err != nil {
		s.logger.Debug("context search failed, generating without context", "error", err)
		return nil, ""
	}

	sources := make([]domain.ContextSource, 0, len(hits))
	var b strings.Builder
	for i, hit := range hits {
		sources = append(sources, domain.ContextSource{
			DocumentID: hit.Payload.DocumentID,
			FileName:   hit.Payload.Metadata.FileName,
			Content:    hit.Payload.Content,
			Similarity: hit.Score,
		})
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, hit.Payload.Metadata.FileName, hit.Payload.Content)
	}
	return sources, strings.TrimSpace(b.String())
}

func (s *Service) materialize(ctx context.Context, file *domain.GeneratedFile, version *domain.GeneratedFileVersion, content string) ([]byte, int, error) {
	switch file.Format {
	case domain.FormatPDF:
		doc := &domain.PDFDocument{
			Title: file.DisplayName,
			Subtitle: fmt.Sprintf("%s • %s • Gerado em %s",
				s.projectName(ctx, file.ProjectID), file.Type.Label(),
				time.Now().Format("02/01/2006")),
			Blocks: ParseMarkdown(content, file.Type == domain.FileTypeQuiz),
		}
		return s.pdf.Render(ctx, doc)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "---\ntitle: %s\ntype: %s\nproject: %s\ngenerated: %s\nversion: %d\n---\n\n",
			file.DisplayName, file.Type, file.ProjectID,
			time.Now().UTC().Format(time.RFC3339), version.Version)
		b.WriteString(content)
		b.WriteString("\n")
		return []byte(b.String()), 0, nil
	}
}

func (s *Service) projectName(ctx context.Context, projectID string) string {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return ""
	}
	return project.Name
}

type artifactMetadata struct {
	Prompt      string                 `json:"prompt"`
	DisplayName string                 `json:"display_name"`
	Type        domain.FileType        `json:"type"`
	Format      domain.FileFormat      `json:"format"`
	Version     int                    `json:"version"`
	GeneratedAt time.Time              `json:"generated_at"`
	Sources     []domain.ContextSource `json:"sources"`
	Content     string                 `json:"content"`
}

// writeMetadata stores the JSON sibling next to the artifact. It carries the
// model markdown so later edits can fetch their base content.
func (s *Service) writeMetadata(ctx context.Context, file *domain.GeneratedFile, version *domain.GeneratedFileVersion, content string, sources []domain.ContextSource) error {
	meta := artifactMetadata{
		Prompt:      version.Prompt,
		DisplayName: file.DisplayName,
		Type:        file.Type,
		Format:      file.Format,
		Version:     version.Version,
		GeneratedAt: time.Now().UTC(),
		Sources:     sources,
		Content:     content,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return s.objects.Upload(ctx, data, metadataKey(file.ID, version.Version))
}

func (s *Service) progress(file *domain.GeneratedFile, version *domain.GeneratedFileVersion, status domain.JobStatus, percent int, message string) {
	s.notifier.Notify(file.OwnerID, domain.GenerationProgress{
		FileID:   file.ID,
		Version:  version.Version,
		Status:   status,
		Progress: percent,
		Message:  message,
	})
}

// Download is a ready-to-serve artifact payload.
type Download struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Download returns the stored bytes of a version; version 0 means current.
// The filename carries a _v suffix only when a version was asked for
// explicitly.
func (s *Service) Download(ctx context.Context, fileID string, version int) (*Download, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	explicit := version != 0
	if !explicit {
		version = file.CurrentVersion
	}
	v, err := s.files.GetVersion(ctx, fileID, version)
	if err != nil {
		return nil, err
	}
	if v.StorageKey == "" {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "version %d of file %s has no artifact", version, fileID)
	}

	data, err := s.objects.Get(ctx, v.StorageKey)
	if err != nil {
		return nil, err
	}

	name := file.DisplayName
	if explicit {
		name = fmt.Sprintf("%s_v%d", name, version)
	}
	return &Download{
		Data:        data,
		Filename:    name + "." + file.Format.Extension(),
		ContentType: file.Format.ContentType(),
	}, nil
}

// Get returns the file record.
func (s *Service) Get(ctx context.Context, fileID string) (*domain.GeneratedFile, error) {
	return s.files.Get(ctx, fileID)
}

// ListVersions returns every version of the file, oldest first.
func (s *Service) ListVersions(ctx context.Context, fileID string) ([]domain.GeneratedFileVersion, error) {
	return s.files.ListVersions(ctx, fileID)
}

// CancelVersion marks a pending or generating version failed. A job that
// finishes afterwards observes the failed status and discards its result.
func (s *Service) CancelVersion(ctx context.Context, fileID string, version int) error {
	v, err := s.files.GetVersion(ctx, fileID, version)
	if err != nil {
		return err
	}
	if v.Status == domain.StatusCompleted {
		return fmt.Errorf("version %d already completed", version)
	}
	v.Status = domain.StatusFailed
	v.ErrorMessage = "cancelled"
	return s.files.UpdateVersion(ctx, v)
}

// DeleteFile removes the record, every version row (relational cascade) and
// all stored artifacts.
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	versions, err := s.files.ListVersions(ctx, fileID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.StorageKey != "" {
			if err := s.objects.Delete(ctx, v.StorageKey); err != nil {
				return err
			}
		}
		if err := s.objects.Delete(ctx, metadataKey(fileID, v.Version)); err != nil {
			return err
		}
	}
	return s.files.Delete(ctx, fileID)
}

// DeleteProjectFiles removes every generated file of a project, artifacts
// included. Called when the owning project is destroyed.
func (s *Service) DeleteProjectFiles(ctx context.Context, projectID string) error {
	files, err := s.files.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
	}
	return nil
}

func artifactKey(fileID string, version int, format domain.FileFormat) string {
	return fmt.Sprintf("%s/v%d/file.%s", fileID, version, format.Extension())
}

func metadataKey(fileID string, version int) string {
	return fmt.Sprintf("%s/v%d/metadata.json", fileID, version)
}
