package mentoria

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mentoria-ai/mentoria/internal/loader"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

var ingestProjectID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file/directory...]",
	Short: "Import documents into a project",
	Long: `Upload files, chunk and vectorize their content and index it in the
project's vector collection. Supports .pdf, .docx, .txt and .md files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestProjectID == "" {
			return fmt.Errorf("--project is required")
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := context.Background()
		if _, err := app.store.Projects().Get(ctx, ingestProjectID); err != nil {
			return err
		}

		var paths []string
		for _, arg := range args {
			expanded, err := collectFiles(arg)
			if err != nil {
				return err
			}
			paths = append(paths, expanded...)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no supported files found")
		}

		failures := 0
		for _, path := range paths {
			result, err := ingestFile(ctx, app, ingestProjectID, path)
			if err != nil {
				failures++
				fmt.Printf("  FAIL %s: %v\n", path, err)
				continue
			}
			fmt.Printf("  OK   %s (%d chunks)\n", path, result.ChunksProcessed)
		}

		fmt.Printf("Ingested %d/%d files into project %s\n", len(paths)-failures, len(paths), ingestProjectID)
		if failures > 0 {
			return fmt.Errorf("%d files failed", failures)
		}
		return nil
	},
}

// collectFiles expands a path into the supported files beneath it.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !loader.SupportedExtension(path) {
			return nil, fmt.Errorf("unsupported file type: %s", path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && loader.SupportedExtension(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func ingestFile(ctx context.Context, app *app, projectID, path string) (*domain.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	filename := filepath.Base(path)
	storageKey := fmt.Sprintf("projects/%s/documents/%s/%s", projectID, docID, filename)
	if err := app.objects.Upload(ctx, data, storageKey); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         docID,
		ProjectID:  projectID,
		FileName:   filename,
		Size:       int64(len(data)),
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}
	if err := app.store.Documents().Create(ctx, doc); err != nil {
		return nil, err
	}

	return app.coordinator.Ingest(ctx, docID)
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestProjectID, "project", "P", "", "target project id (required)")
}
