package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragflow/internal/tui"
)

func NewChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive search and question answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, a)
		},
	}
	cmd.Flags().IntP("top-k", "k", 0, "Number of passages per query (default from config)")
	return cmd
}

func runChat(cmd *cobra.Command, a *app) error {
	s, err := a.open(cmd, openOptions{generator: true})
	if err != nil {
		return err
	}
	defer s.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = s.cfg.Retrieval.TopK
	}
	header := fmt.Sprintf("store=%s embedder=%s", s.cfg.VectorStore.Type, s.cfg.Embedder.Type)
	if s.generator != nil {
		header += " generator=" + s.generator.Name()
	}

	m := tui.New(cmd.Context(), s.svc, topK, s.generator != nil, header)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	return err
}
