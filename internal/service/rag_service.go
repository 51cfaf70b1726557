package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ragflow/internal/domain"
	"ragflow/internal/embedding"
	"ragflow/internal/generation"
	"ragflow/internal/similarity"
	"ragflow/internal/vectorstore"
)

// DefaultPromptTemplate is used when Options.PromptTemplate is empty.
// {{context}} and {{question}} are substituted by BuildPrompt.
const DefaultPromptTemplate = `Answer the question using only the context below.
If the context does not contain the answer, say that you don't know.

Context:
{{context}}

Question: {{question}}
Answer:`

// Options tunes the RAG flow.
type Options struct {
	// Dimension is the expected embedding length. 0 adopts whatever the embedder reports.
	Dimension      int
	TopK           int
	PromptTemplate string
}

// Deps are the collaborators of a RAGService. Generator and Chunker are optional.
type Deps struct {
	Embedder  embedding.Embedder
	Store     vectorstore.Storage
	Generator generation.Generator
	// Chunker splits documents before indexing; nil indexes each document as one record.
	Chunker domain.Chunker
	Logger  *slog.Logger
}

// Answer is the outcome of Ask.
type Answer struct {
	Question string
	Text     string
	Prompt   string
	Sources  []domain.Match
}

// RAGService runs embed -> upsert -> query -> prompt -> generate, one step at a time.
// The first failing step aborts the flow and its error is returned unchanged.
type RAGService struct {
	embedder  embedding.Embedder
	store     vectorstore.Storage
	generator generation.Generator
	chunker   domain.Chunker
	logger    *slog.Logger
	opts      Options
	dimension int
}

func New(deps Deps, opts Options) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		embedder:  deps.Embedder,
		store:     deps.Store,
		generator: deps.Generator,
		chunker:   deps.Chunker,
		logger:    logger,
		opts:      opts,
		dimension: opts.Dimension,
	}
}

// Index embeds the documents as RETRIEVAL_DOCUMENT and upserts them. It returns
// the number of records written.
func (s *RAGService) Index(ctx context.Context, docs []domain.Document) (int, error) {
	records, err := s.toRecords(docs)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	if p, ok := s.embedder.(embedding.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return 0, fmt.Errorf("prepare embedder: %w", err)
		}
	}

	s.logger.Debug("embedding documents", "records", len(records), "embedder", s.embedder.Name())
	vectors, err := s.embed(ctx, texts, domain.TaskRetrievalDocument)
	if err != nil {
		return 0, err
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}

	if err := s.store.Init(ctx, s.dimension); err != nil {
		return 0, err
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	s.logger.Info("indexed documents", "documents", len(docs), "records", len(records), "dimension", s.dimension)
	return len(records), nil
}

// Search embeds query as RETRIEVAL_QUERY and returns the topK closest records
// with their metadata. topK <= 0 uses the configured default.
func (s *RAGService) Search(ctx context.Context, query string, topK int) ([]domain.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query must not be empty")
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}
	vectors, err := s.embed(ctx, []string{query}, domain.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Query(ctx, vectors[0], topK, true)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search complete", "matches", len(matches), "top_k", topK)
	return matches, nil
}

// Ask retrieves context for question and forwards the built prompt to the generator.
func (s *RAGService) Ask(ctx context.Context, question string, topK int) (Answer, error) {
	if s.generator == nil {
		return Answer{}, &domain.ConfigurationError{Key: "generator", Reason: "no generator configured"}
	}
	matches, err := s.Search(ctx, question, topK)
	if err != nil {
		return Answer{}, err
	}
	prompt := s.BuildPrompt(question, matches)

	s.logger.Debug("generating answer", "generator", s.generator.Name(), "sources", len(matches))
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Question: question, Text: text, Prompt: prompt, Sources: matches}, nil
}

// Rank embeds candidates and query and orders the candidates locally by
// cosine similarity, without touching the vector store.
func (s *RAGService) Rank(ctx context.Context, query string, candidates []domain.Document) ([]similarity.Scored, error) {
	if len(candidates) == 0 {
		return []similarity.Scored{}, nil
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}
	if p, ok := s.embedder.(embedding.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}

	docVectors, err := s.embed(ctx, texts, domain.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}
	queryVectors, err := s.embed(ctx, []string{query}, domain.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	scored := make([]similarity.Candidate, len(candidates))
	for i, c := range candidates {
		scored[i] = similarity.Candidate{ID: c.ID, Text: c.Content, Vector: docVectors[i]}
		if c.Path != "" {
			scored[i].Metadata = map[string]string{"source": c.Path}
		}
	}
	return similarity.Rank(queryVectors[0], scored)
}

// BuildPrompt renders the prompt template with numbered context passages.
func (s *RAGService) BuildPrompt(question string, matches []domain.Match) string {
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(m.Text))
	}
	if len(matches) == 0 {
		b.WriteString("(no context found)")
	}
	r := strings.NewReplacer("{{context}}", b.String(), "{{question}}", strings.TrimSpace(question))
	return r.Replace(s.opts.PromptTemplate)
}

// embed calls the embedder and enforces one vector per text, all of the expected length.
func (s *RAGService) embed(ctx context.Context, texts []string, task domain.TaskType) ([][]float32, error) {
	vectors, err := s.embedder.Embed(ctx, texts, task)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, domain.Remote(s.embedder.Name(), "embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	if s.dimension == 0 {
		s.dimension = s.embedder.Dimension()
	}
	if s.dimension == 0 {
		s.dimension = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return nil, &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(v)}
		}
	}
	return vectors, nil
}

func (s *RAGService) toRecords(docs []domain.Document) ([]domain.Record, error) {
	var records []domain.Record
	for _, d := range docs {
		if s.chunker == nil {
			if strings.TrimSpace(d.Content) == "" {
				continue
			}
			records = append(records, domain.Record{
				ID:       d.ID,
				Text:     d.Content,
				Metadata: recordMetadata(d, 0),
			})
			continue
		}
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		for _, ch := range chunks {
			records = append(records, domain.Record{
				ID:       ch.ChunkID,
				Text:     ch.Text,
				Metadata: recordMetadata(d, ch.Index),
			})
		}
	}
	return records, nil
}

func recordMetadata(d domain.Document, chunk int) map[string]string {
	meta := map[string]string{
		"document_id": d.ID,
		"chunk":       strconv.Itoa(chunk),
	}
	if d.Path != "" {
		meta["source"] = d.Path
	}
	return meta
}
