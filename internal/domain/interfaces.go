package domain

// Document represents a single text file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// TaskType tells the embedding service how to bias the produced vector.
type TaskType string

const (
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Record is an embedded piece of text as written to a vector store.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Match is a record returned by a vector store query, scored against the query vector.
type Match struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]string
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
