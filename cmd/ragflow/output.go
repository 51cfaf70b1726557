package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ragflow/internal/domain"
	"ragflow/internal/similarity"
)

const previewWidth = 72

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type matchJSON struct {
	Rank     int               `json:"rank"`
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func matchesJSON(matches []domain.Match) []matchJSON {
	out := make([]matchJSON, len(matches))
	for i, m := range matches {
		out[i] = matchJSON{Rank: i + 1, ID: m.ID, Score: m.Score, Text: m.Text, Metadata: m.Metadata}
	}
	return out
}

func scoredJSON(ranked []similarity.Scored) []matchJSON {
	out := make([]matchJSON, len(ranked))
	for i, r := range ranked {
		out[i] = matchJSON{Rank: i + 1, ID: r.ID, Score: r.Score, Text: r.Text, Metadata: r.Metadata}
	}
	return out
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func matchesTable(matches []domain.Match) string {
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", m.Score),
			m.ID,
			m.Metadata["source"],
			preview(m.Text),
		}
	}
	return renderTable([]string{"#", "Score", "ID", "Source", "Text"}, rows)
}

func scoredTable(ranked []similarity.Scored) string {
	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", r.Score),
			r.ID,
			preview(r.Text),
		}
	}
	return renderTable([]string{"#", "Score", "ID", "Text"}, rows)
}

// preview collapses whitespace and cuts text to previewWidth runes.
func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewWidth {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewWidth-1]) + "…"
}
