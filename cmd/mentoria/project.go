package mentoria

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

var (
	projectName        string
	projectSubject     string
	projectDescription string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectName == "" {
			return fmt.Errorf("--name is required")
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		now := time.Now().UTC()
		project := &domain.Project{
			ID:          uuid.New().String(),
			Name:        projectName,
			Subject:     projectSubject,
			Description: projectDescription,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := app.store.Projects().Create(context.Background(), project); err != nil {
			return err
		}

		fmt.Printf("Created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show document counts and vector collection stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := context.Background()
		project, err := app.store.Projects().Get(ctx, args[0])
		if err != nil {
			return err
		}
		documents, err := app.store.Documents().ListByProject(ctx, project.ID)
		if err != nil {
			return err
		}

		processed := 0
		for i := range documents {
			if documents[i].Processed() {
				processed++
			}
		}

		fmt.Printf("Project:    %s (%s)\n", project.Name, project.ID)
		fmt.Printf("Documents:  %d total, %d processed\n", len(documents), processed)
		if project.CollectionHandle == "" {
			fmt.Println("Collection: not created yet")
			return nil
		}

		stats, err := app.vectors.Stats(ctx, project.CollectionHandle)
		if err != nil {
			return err
		}
		fmt.Printf("Collection: %s (%s)\n", project.CollectionHandle, stats.Status)
		fmt.Printf("Points:     %d stored, %d indexed\n", stats.PointsCount, stats.IndexedCount)
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectName, "name", "n", "", "project name (required)")
	projectCreateCmd.Flags().StringVarP(&projectSubject, "subject", "s", "", "subject area")
	projectCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "project description")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectStatusCmd)
}
