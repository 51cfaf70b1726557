package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragflow",
		Short: "Embed, index, search and ask over your text files",
		Long: `ragflow embeds text with a hosted embedding model, stores the vectors in a
vector store, retrieves the closest passages for a query and forwards them to
a language model to answer questions.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewIndexCmd(a),
		NewSearchCmd(a),
		NewAskCmd(a),
		NewRankCmd(a),
		NewChatCmd(a),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to YAML config (default ./ragflow.yaml, then ~/.config/ragflow/config.yaml)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}
