package vectorstore

import (
	"ragflow/internal/domain"
	"ragflow/internal/similarity"
)

// ToMatches converts locally ranked candidates into store matches.
func ToMatches(ranked []similarity.Scored, includeMetadata bool) []domain.Match {
	out := make([]domain.Match, len(ranked))
	for i, r := range ranked {
		out[i] = domain.Match{ID: r.ID, Text: r.Text, Score: r.Score}
		if includeMetadata {
			out[i].Metadata = r.Metadata
		}
	}
	return out
}
