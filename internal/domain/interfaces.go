package domain

import "context"

// RetrievalResult is a single similarity-search hit: the stored point's id,
// its similarity to the query vector, and the stored payload.
type RetrievalResult struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Payload keys written at ingestion time and read back at answer time.
const (
	PayloadSource      = "source"
	PayloadAbsPath     = "abs_path"
	PayloadChunkIndex  = "chunk_index"
	PayloadText        = "text"
	PayloadTextPointer = "text_pointer"
)

// Answer is the outcome of one answering-pipeline invocation. Text is always
// populated: either the model output or a descriptive failure string. Callers
// that need to distinguish the two inspect CompletionErr instead of sniffing
// the string.
type Answer struct {
	Text          string
	Retrieved     []RetrievalResult
	CompletionErr error
}

// Embedder converts batches of text into fixed-dimension, L2-normalized
// vectors, one per input and in input order.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists (id, vector, payload) points in a named collection and
// supports top-k similarity search. EnsureCollection is idempotent and must
// succeed before the first Upsert against a new collection.
type VectorStore interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	Upsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]any) error
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]RetrievalResult, error)
}

// CompletionClient generates text for a prompt. Implementations apply their
// own bounded timeout on top of ctx.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
