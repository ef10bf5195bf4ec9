package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"quiz-round-service/internal/config"
	"quiz-round-service/internal/infra/file"
	"quiz-round-service/internal/infra/postgres"
)

// NewImportBankCmd copies a YAML question bank into the questions table.
func NewImportBankCmd(configPath *string) *cobra.Command {
	var bankPath string
	cmd := &cobra.Command{
		Use:   "import-bank",
		Short: "Load a YAML question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if bankPath == "" {
				bankPath = cfg.Quiz.Bank
			}
			data, err := os.ReadFile(bankPath)
			if err != nil {
				return err
			}
			questions, err := file.ParseQuestions(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.ImportQuestions(ctx, db, questions); err != nil {
				return err
			}
			log.Printf("imported %d questions from %s", len(questions), bankPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&bankPath, "file", "", "question bank YAML (defaults to quiz.bank)")
	return cmd
}
