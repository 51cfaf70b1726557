package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ragflow/internal/domain"
	"ragflow/internal/service"
)

func NewRankCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <query>",
		Short: "Rank candidate texts against a query in memory",
		Long: `Embed every candidate as a retrieval document and the query as a retrieval
query, then order the candidates by cosine similarity. Nothing is stored.`,
		Example: `  ragflow rank "pets that purr" --doc "Cats purr." --doc "Dogs bark."
  ragflow rank "error handling" --file notes/*.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, a, args[0])
		},
	}
	cmd.Flags().StringArrayP("doc", "d", nil, "Candidate text (repeatable)")
	cmd.Flags().StringArrayP("file", "f", nil, "Candidate file, directory or glob (repeatable)")
	return cmd
}

func runRank(cmd *cobra.Command, a *app, query string) error {
	texts, _ := cmd.Flags().GetStringArray("doc")
	files, _ := cmd.Flags().GetStringArray("file")
	if len(texts) == 0 && len(files) == 0 {
		return errors.New("provide at least one --doc or --file")
	}

	var candidates []domain.Document
	for i, t := range texts {
		candidates = append(candidates, domain.Document{ID: fmt.Sprintf("doc-%d", i+1), Content: t})
	}
	if len(files) > 0 {
		docs, err := service.LoadDocuments(files)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		candidates = append(candidates, docs...)
	}

	s, err := a.open(cmd, openOptions{localStore: true})
	if err != nil {
		return err
	}
	defer s.Close()

	ranked, err := s.svc.Rank(cmd.Context(), query, candidates)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	if wantJSON(cmd) {
		return outputJSON(cmd, scoredJSON(ranked))
	}
	fmt.Fprintln(cmd.OutOrStdout(), scoredTable(ranked))
	return nil
}
