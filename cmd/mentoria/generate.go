package mentoria

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentoria-ai/mentoria/internal/filegen"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

var (
	generateProjectID string
	generateName      string
	generateType      string
	generateFormat    string
	generateOutDir    string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a study artifact from project documents",
	Long: `Generate a PDF or Markdown study artifact (summary, quiz, study guide,
lesson plan) grounded in the project's indexed documents, then write it to
disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		if generateName == "" {
			return fmt.Errorf("--name is required")
		}

		format := domain.FileFormat(generateFormat)
		if format != domain.FormatPDF && format != domain.FormatMarkdown {
			return fmt.Errorf("unknown format: %s", generateFormat)
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := context.Background()
		file, err := app.files.CreateFile(ctx, filegen.CreateParams{
			ProjectID:   generateProjectID,
			Prompt:      strings.Join(args, " "),
			DisplayName: generateName,
			Type:        domain.FileType(generateType),
			Format:      format,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Generating %s (version %d)...\n", file.DisplayName, file.CurrentVersion)
		app.files.Wait()

		version, err := app.store.GeneratedFiles().GetVersion(ctx, file.ID, file.CurrentVersion)
		if err != nil {
			return err
		}
		if version.Status != domain.StatusCompleted {
			return fmt.Errorf("generation failed: %s", version.ErrorMessage)
		}

		download, err := app.files.Download(ctx, file.ID, 0)
		if err != nil {
			return err
		}

		out := filepath.Join(generateOutDir, download.Filename)
		if err := os.WriteFile(out, download.Data, 0o644); err != nil {
			return err
		}

		fmt.Printf("Wrote %s (%d bytes", out, len(download.Data))
		if version.PageCount > 0 {
			fmt.Printf(", %d pages", version.PageCount)
		}
		fmt.Println(")")
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateProjectID, "project", "P", "", "project id (required)")
	generateCmd.Flags().StringVarP(&generateName, "name", "n", "", "display name of the artifact (required)")
	generateCmd.Flags().StringVarP(&generateType, "type", "t", "custom", "artifact type: study-guide, quiz, summary, lesson-plan, custom")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "pdf", "output format: pdf or markdown")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", ".", "output directory")
}
