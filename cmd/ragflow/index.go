package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragflow/internal/service"
)

func NewIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file|dir|glob>...",
		Short: "Embed and store documents",
		Long: `Load .txt and .md files, split them into sentence chunks, embed each chunk
as a retrieval document and upsert the vectors into the configured store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, a, args)
		},
	}
	cmd.Flags().Bool("clear", false, "Remove everything from the store before indexing")
	cmd.Flags().Bool("no-summary", false, "Skip the corpus summary")
	return cmd
}

func runIndex(cmd *cobra.Command, a *app, paths []string) error {
	docs, err := service.LoadDocuments(paths)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	s, err := a.open(cmd, openOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if reset, _ := cmd.Flags().GetBool("clear"); reset {
		if err := s.store.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}

	n, err := s.svc.Index(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	var summary string
	if skip, _ := cmd.Flags().GetBool("no-summary"); !skip && s.summary != nil {
		var corpus strings.Builder
		for _, d := range docs {
			corpus.WriteString(d.Content)
			corpus.WriteString("\n")
		}
		if summary, err = s.summary.Summarize(corpus.String(), s.cfg.Summarizer.MaxSentences); err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
	}

	if wantJSON(cmd) {
		return outputJSON(cmd, map[string]any{
			"documents": len(docs),
			"records":   n,
			"summary":   summary,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %d records from %d documents into %s.\n", n, len(docs), s.cfg.VectorStore.Type)
	if summary != "" {
		fmt.Fprintf(out, "\n%s\n%s\n", labelStyle.Render("Summary"), summary)
	}
	return nil
}
