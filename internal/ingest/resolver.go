package ingest

import (
	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/extract"
)

// Resolver recovers chunk text for points stored without inline text by
// re-extracting the source file and re-chunking it with the parameters
// recorded in the point's text_pointer.
type Resolver struct {
	extractors *extract.Registry
}

func NewResolver(extractors *extract.Registry) *Resolver {
	return &Resolver{extractors: extractors}
}

// ResolveText returns the chunk text referenced by the payload's
// text_pointer, or false if the payload has no resolvable pointer.
func (r *Resolver) ResolveText(payload map[string]any) (string, bool) {
	ptr, ok := payload[domain.PayloadTextPointer].(map[string]any)
	if !ok {
		return "", false
	}
	file, _ := ptr["file"].(string)
	chunkIndex, okIdx := asInt(ptr["chunk_index"])
	chunkSize, okSize := asInt(ptr["chunk_size"])
	overlap, okOv := asInt(ptr["overlap"])
	sentence, _ := ptr["sentence_boundary"].(bool)
	if file == "" || !okIdx || !okSize || !okOv {
		return "", false
	}

	text, err := r.extractors.Extract(file)
	if err != nil {
		return "", false
	}
	splitter, err := chunker.New(chunkSize, overlap, sentence)
	if err != nil {
		return "", false
	}
	chunks := splitter.Split(text)
	if chunkIndex < 0 || chunkIndex >= len(chunks) {
		return "", false
	}
	return chunks[chunkIndex], true
}

// asInt accepts the integer encodings seen across stores: native ints from
// the in-memory store and float64 from JSON round trips.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
