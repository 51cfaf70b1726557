package similarity

import (
	"sort"

	"ragflow/internal/domain"
)

// Candidate is an identified text with its embedding.
type Candidate struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Scored is a candidate annotated with its similarity to the query.
type Scored struct {
	Candidate
	Score float64
}

// Rank scores every candidate against query and returns them ordered by
// descending score. Ties keep their input order. All inputs are validated
// before any score is produced, so an error never comes with partial output.
// An empty candidate set returns an empty result.
func Rank(query []float32, candidates []Candidate) ([]Scored, error) {
	if len(candidates) == 0 {
		return []Scored{}, nil
	}
	qnorm := Magnitude(query)
	if qnorm == 0 {
		return nil, &domain.InvalidVectorError{ID: "query"}
	}
	norms := make([]float64, len(candidates))
	for i, c := range candidates {
		if len(c.Vector) != len(query) {
			return nil, &domain.DimensionMismatchError{Expected: len(query), Actual: len(c.Vector)}
		}
		norms[i] = Magnitude(c.Vector)
		if norms[i] == 0 {
			return nil, &domain.InvalidVectorError{ID: c.ID}
		}
	}

	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		dot := 0.0
		for j := range query {
			dot += float64(query[j]) * float64(c.Vector[j])
		}
		out[i] = Scored{Candidate: c, Score: clamp(dot / (qnorm * norms[i]))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// TopK returns at most k leading entries of an already ranked slice. k <= 0 keeps all.
func TopK(ranked []Scored, k int) []Scored {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}
