package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewAskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Retrieve the passages closest to the question, build a prompt from them and
forward it to the configured language model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, a, args[0])
		},
	}
	cmd.Flags().IntP("top-k", "k", 0, "Number of context passages (default from config)")
	cmd.Flags().Bool("show-prompt", false, "Print the prompt sent to the model")
	return cmd
}

func runAsk(cmd *cobra.Command, a *app, question string) error {
	s, err := a.open(cmd, openOptions{generator: true})
	if err != nil {
		return err
	}
	defer s.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	ans, err := s.svc.Ask(cmd.Context(), question, topK)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	showPrompt, _ := cmd.Flags().GetBool("show-prompt")

	if wantJSON(cmd) {
		out := map[string]any{
			"question": ans.Question,
			"answer":   ans.Text,
			"sources":  matchesJSON(ans.Sources),
		}
		if showPrompt {
			out["prompt"] = ans.Prompt
		}
		return outputJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	if showPrompt {
		fmt.Fprintf(w, "%s\n%s\n\n", labelStyle.Render("Prompt"), ans.Prompt)
	}
	fmt.Fprintln(w, ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintf(w, "\n%s\n", labelStyle.Render("Sources"))
		for i, m := range ans.Sources {
			src := m.Metadata["source"]
			if src == "" {
				src = m.ID
			}
			fmt.Fprintf(w, "[%d] %s (%.3f)\n", i+1, src, m.Score)
		}
	}
	return nil
}
