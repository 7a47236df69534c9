package mentoria

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

var (
	queryProjectID      string
	queryType           string
	queryConversationID string
	queryShowSources    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against a project's documents",
	Long: `Answer a question grounded in the project's indexed documents.
--type selects an educational rewrite: question (default), summary, quiz or
explanation. --conversation continues an existing conversation with memory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		question := strings.Join(args, " ")

		qt := domain.EducationalQueryType(queryType)
		switch qt {
		case domain.QueryTypeQuestion, domain.QueryTypeSummary, domain.QueryTypeQuiz, domain.QueryTypeExplanation:
		default:
			return fmt.Errorf("unknown query type: %s", queryType)
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		answer, err := app.engine.EducationalQuery(context.Background(), queryProjectID, question, qt, queryConversationID)
		if err != nil {
			return err
		}

		fmt.Println(answer.Answer)
		if queryShowSources && len(answer.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range answer.Sources {
				fmt.Printf("  - %s (chunk %d, score %.2f)\n", src.FileName, src.ChunkIndex, src.Score)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryProjectID, "project", "P", "", "project id (required)")
	queryCmd.Flags().StringVarP(&queryType, "type", "t", "question", "query type: question, summary, quiz, explanation")
	queryCmd.Flags().StringVar(&queryConversationID, "conversation", "", "conversation id for memory-aware queries")
	queryCmd.Flags().BoolVar(&queryShowSources, "sources", false, "print retrieval sources")
}
