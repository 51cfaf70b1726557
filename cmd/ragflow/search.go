package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the passages closest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, args[0])
		},
	}
	cmd.Flags().IntP("top-k", "k", 0, "Number of results (default from config)")
	return cmd
}

func runSearch(cmd *cobra.Command, a *app, query string) error {
	s, err := a.open(cmd, openOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	matches, err := s.svc.Search(cmd.Context(), query, topK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if wantJSON(cmd) {
		return outputJSON(cmd, matchesJSON(matches))
	}
	if len(matches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matches. Index some documents first.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), matchesTable(matches))
	return nil
}
