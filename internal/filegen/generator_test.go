package filegen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type fakeFileRepo struct {
	mu       sync.Mutex
	files    map[string]*domain.GeneratedFile
	versions map[string]*domain.GeneratedFileVersion // key: fileID/version
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files:    map[string]*domain.GeneratedFile{},
		versions: map[string]*domain.GeneratedFileVersion{},
	}
}

func versionKey(fileID string, version int) string {
	return fmt.Sprintf("%s/%d", fileID, version)
}

func (f *fakeFileRepo) Create(ctx context.Context, file *domain.GeneratedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.files {
		if existing.ProjectID == file.ProjectID && existing.FileName == file.FileName {
			return fmt.Errorf("duplicate file name %s", file.FileName)
		}
	}
	cp := *file
	f.files[file.ID] = &cp
	return nil
}

func (f *fakeFileRepo) Get(ctx context.Context, id string) (*domain.GeneratedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "file %s not found", id)
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFileRepo) GetByName(ctx context.Context, projectID, fileName string) (*domain.GeneratedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files {
		if file.ProjectID == projectID && file.FileName == fileName {
			cp := *file
			return &cp, nil
		}
	}
	return nil, domain.WrapErrorf(domain.ErrNotFound, "file %s not found", fileName)
}

func (f *fakeFileRepo) ListByProject(ctx context.Context, projectID string) ([]domain.GeneratedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GeneratedFile
	for _, file := range f.files {
		if file.ProjectID == projectID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) SetCurrentVersion(ctx context.Context, id string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id].CurrentVersion = version
	return nil
}

func (f *fakeFileRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	for key := range f.versions {
		if strings.HasPrefix(key, id+"/") {
			delete(f.versions, key)
		}
	}
	return nil
}

func (f *fakeFileRepo) CreateVersion(ctx context.Context, v *domain.GeneratedFileVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.versions[versionKey(v.FileID, v.Version)] = &cp
	return nil
}

func (f *fakeFileRepo) GetVersion(ctx context.Context, fileID string, version int) (*domain.GeneratedFileVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[versionKey(fileID, version)]
	if !ok {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "version %d not found", version)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeFileRepo) UpdateVersion(ctx context.Context, v *domain.GeneratedFileVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := versionKey(v.FileID, v.Version)
	if _, ok := f.versions[key]; !ok {
		return domain.WrapErrorf(domain.ErrNotFound, "version %d not found", v.Version)
	}
	cp := *v
	f.versions[key] = &cp
	return nil
}

func (f *fakeFileRepo) ListVersions(ctx context.Context, fileID string) ([]domain.GeneratedFileVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GeneratedFileVersion
	for v := 1; ; v++ {
		version, ok := f.versions[versionKey(fileID, v)]
		if !ok {
			break
		}
		out = append(out, *version)
	}
	return out, nil
}

type fakeProjects struct {
	project *domain.Project
}

func (f *fakeProjects) Create(ctx context.Context, p *domain.Project) error { return nil }
func (f *fakeProjects) Get(ctx context.Context, id string) (*domain.Project, error) {
	cp := *f.project
	return &cp, nil
}
func (f *fakeProjects) SetCollectionHandle(ctx context.Context, id, handle string) error { return nil }
func (f *fakeProjects) Delete(ctx context.Context, id string) error                      { return nil }

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjects) Upload(ctx context.Context, data []byte, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapErrorf(domain.ErrNotFound, "object %s not found", key)
	}
	return data, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjects) Copy(ctx context.Context, src, dst string) error {
	data, err := f.Get(ctx, src)
	if err != nil {
		return err
	}
	return f.Upload(ctx, data, dst)
}

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

type fakeVectors struct {
	hits     []domain.ScoredPoint
	searched int
}

func (f *fakeVectors) CreateCollection(ctx context.Context, projectID string, dim int) (string, error) {
	return "project_" + projectID, nil
}
func (f *fakeVectors) Upsert(ctx context.Context, handle string, points []domain.Point) error {
	return nil
}
func (f *fakeVectors) Search(ctx context.Context, handle string, vector []float32, k int, threshold float64) ([]domain.ScoredPoint, error) {
	f.searched++
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
	mu       sync.Mutex
	response string
	prompts  []string
}

func (f *fakeChat) Chat(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions) (*domain.ChatResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	return &domain.ChatResult{Content: f.response}, nil
}

func (f *fakeChat) Stream(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions, fn func(string) error) error {
	return fn(f.response)
}

func (f *fakeChat) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakePDFEngine struct{}

func (fakePDFEngine) Render(ctx context.Context, doc *domain.PDFDocument) ([]byte, int, error) {
	pages := 1
	for _, b := range doc.Blocks {
		if b.Kind == domain.BlockPageBreak {
			pages++
		}
	}
	return []byte("%PDF-1.4 " + doc.Title), pages, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.GenerationProgress
}

func (r *recordingNotifier) Notify(ownerID string, p domain.GenerationProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recordingNotifier) statuses() []domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.JobStatus, len(r.events))
	for i, e := range r.events {
		out[i] = e.Status
	}
	return out
}

func quizMarkdown(questions int) string {
	var b strings.Builder
	b.WriteString("## Instructions\nResponda todas as questões.\n\n## Questions\n\n")
	for i := 1; i <= questions; i++ {
		fmt.Fprintf(&b, "### Question %d\nPergunta %d sobre fotossíntese?\nA. opção\nB. opção\nC. opção\nD. opção\n\n", i, i)
	}
	b.WriteString("## Gabarito (Answer Key)\n")
	for i := 1; i <= questions; i++ {
		fmt.Fprintf(&b, "%d. A — justificativa\n", i)
	}
	return b.String()
}

type genFixture struct {
	service  *Service
	files    *fakeFileRepo
	objects  *fakeObjects
	vectors  *fakeVectors
	chat     *fakeChat
	notifier *recordingNotifier
}

func newGenFixture(t *testing.T, project *domain.Project, chatResponse string) *genFixture {
	t.Helper()
	f := &genFixture{
		files:    newFakeFileRepo(),
		objects:  &fakeObjects{objects: map[string][]byte{}},
		vectors:  &fakeVectors{},
		chat:     &fakeChat{response: chatResponse},
		notifier: &recordingNotifier{},
	}
	f.service = NewService(
		f.files, &fakeProjects{project: project}, f.objects,
		fakeEmbedder{}, f.vectors, f.chat, fakePDFEngine{}, f.notifier,
		config.RAGConfig{MaxChunks: 5, SimilarityThreshold: 0.4},
	)
	return f
}

func TestCreateQuizWithoutContext(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia", Subject: "Ciências"}
	f := newGenFixture(t, project, quizMarkdown(10))
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "owner-1",
		Prompt:      "Crie um quiz de 10 perguntas sobre fotossíntese",
		DisplayName: "Quiz Fotossintese",
		Type:        domain.FileTypeQuiz, Format: domain.FormatPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, "quiz-fotossintese", file.FileName)
	assert.Equal(t, 1, file.CurrentVersion)

	f.service.Wait()

	// No collection handle: retrieval skipped entirely.
	assert.Zero(t, f.vectors.searched)

	v, err := f.files.GetVersion(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, v.Status)
	assert.Empty(t, v.Sources)
	assert.Equal(t, file.ID+"/v1/file.pdf", v.StorageKey)
	assert.Equal(t, 2, v.PageCount) // answer key on its own page
	assert.Positive(t, v.Size)

	statuses := f.notifier.statuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, domain.StatusGenerating, statuses[0])
	assert.Equal(t, domain.StatusCompleted, statuses[len(statuses)-1])

	// Metadata sibling holds the model markdown with all questions.
	meta, err := f.objects.Get(ctx, file.ID+"/v1/metadata.json")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, strings.Count(string(meta), "### Question"), 8)
}

func TestCreateFileExistingNameDelegatesToNewVersion(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia"}
	f := newGenFixture(t, project, "# Guia\n\nConteúdo.")
	ctx := context.Background()

	first, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia",
		DisplayName: "Guia Celular", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	second, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "adicione uma seção sobre mitose",
		DisplayName: "Guia Celular", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	assert.Equal(t, first.ID, second.ID)

	file, err := f.files.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, file.CurrentVersion)

	versions, err := f.files.ListVersions(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
	assert.Equal(t, 1, versions[1].BaseVersion)

	// The second generation was a true edit: the base markdown reached the
	// model prompt.
	assert.Contains(t, f.chat.lastPrompt(), "Versão atual:")
	assert.Contains(t, f.chat.lastPrompt(), "# Guia")
}

func TestMarkdownArtifactFrontMatter(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "História"}
	f := newGenFixture(t, project, "# Resumo\n\nA era Vargas durou de 1930 a 1945.")
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "resuma a era Vargas",
		DisplayName: "Resumo Era Vargas", Type: domain.FileTypeSummary, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	data, err := f.objects.Get(ctx, file.ID+"/v1/file.md")
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "---\n"))
	assert.Contains(t, text, "title: Resumo Era Vargas")
	assert.Contains(t, text, "type: summary")
	assert.Contains(t, text, "version: 1")
	assert.Contains(t, text, "A era Vargas durou de 1930 a 1945.")
}

func TestGenerationWithContextRecordsSources(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia", CollectionHandle: "project_p1"}
	f := newGenFixture(t, project, "# Guia\n\nConteúdo baseado nos documentos.")
	f.vectors.hits = []domain.ScoredPoint{{
		ID: "pt-1", Score: 0.8,
		Payload: domain.ChunkPayload{
			DocumentID: "doc-1", Content: "A mitocôndria produz energia.",
			Metadata: domain.ChunkMetadata{FileName: "celula.pdf"},
		},
	}}
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia sobre organelas celulares",
		DisplayName: "Guia Organelas", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	assert.Equal(t, 1, f.vectors.searched)
	v, err := f.files.GetVersion(ctx, file.ID, 1)
	require.NoError(t, err)
	require.Len(t, v.Sources, 1)
	assert.Equal(t, "doc-1", v.Sources[0].DocumentID)
	assert.Equal(t, 0.8, v.Sources[0].Similarity)
	assert.Contains(t, f.chat.lastPrompt(), "A mitocôndria produz energia.")
}

func TestEmptyModelResponseFailsVersion(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia"}
	f := newGenFixture(t, project, "   ")
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia",
		DisplayName: "Guia Vazio", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	v, err := f.files.GetVersion(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.Contains(t, v.ErrorMessage, domain.CodeModelReturnedEmpty)

	statuses := f.notifier.statuses()
	assert.Equal(t, domain.StatusFailed, statuses[len(statuses)-1])
}

func TestDownloadCurrentAndExplicitVersion(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia"}
	f := newGenFixture(t, project, "# Guia\n\nConteúdo.")
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia",
		DisplayName: "Guia Download", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	current, err := f.service.Download(ctx, file.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Guia Download.md", current.Filename)
	assert.Equal(t, "text/markdown; charset=utf-8", current.ContentType)
	assert.NotEmpty(t, current.Data)

	explicit, err := f.service.Download(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Guia Download_v1.md", explicit.Filename)
}

func TestDeleteFileRemovesArtifacts(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia"}
	f := newGenFixture(t, project, "# Guia\n\nConteúdo.")
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia",
		DisplayName: "Guia Apagar", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	require.NoError(t, f.service.DeleteFile(ctx, file.ID))

	exists, err := f.objects.Exists(ctx, file.ID+"/v1/file.md")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = f.files.Get(ctx, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVersionsStayDense(t *testing.T) {
	project := &domain.Project{ID: "p1", Name: "Biologia"}
	f := newGenFixture(t, project, "# Guia\n\nConteúdo.")
	ctx := context.Background()

	file, err := f.service.CreateFile(ctx, CreateParams{
		ProjectID: "p1", OwnerID: "o1", Prompt: "crie um guia",
		DisplayName: "Guia Denso", Type: domain.FileTypeStudyGuide, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	f.service.Wait()

	for i := 0; i < 3; i++ {
		_, err := f.service.NewVersion(ctx, file.ID, fmt.Sprintf("edição %d", i), 0)
		require.NoError(t, err)
		f.service.Wait()
	}

	versions, err := f.files.ListVersions(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, versions, 4)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
	}
	got, err := f.files.Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentVersion)
}
