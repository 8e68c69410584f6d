// Package rag combines retrieval and generation into cited answers.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/domain"
)

// ErrEmptyQuery rejects blank queries before any retrieval work happens.
var ErrEmptyQuery = errors.New("rag: empty query")

const (
	defaultTopK    = 5
	answerMaxToken = 512
	blockSeparator = "\n\n---\n\n"
	missingText    = "[text not stored in payload]"
)

const promptTemplate = `You are an assistant. Use the following retrieved document chunks to answer the user query.

Context:
%s

User question:
%s

Answer concisely and cite source chunks by 'Source: filename (chunk:n)' when relevant.
`

// TextResolver recovers chunk text for points stored without inline text.
type TextResolver interface {
	ResolveText(payload map[string]any) (string, bool)
}

// Pipeline answers queries from the vector store through a completion model.
type Pipeline struct {
	embedder domain.Embedder
	store    domain.VectorStore
	llm      domain.CompletionClient
	resolver TextResolver
	topK     int
	log      *slog.Logger
}

// New assembles a pipeline. resolver may be nil; retrieved points without
// inline text then fall back to a placeholder. topK <= 0 selects the default.
func New(embedder domain.Embedder, store domain.VectorStore, llm domain.CompletionClient, resolver TextResolver, topK int, log *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = defaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		llm:      llm,
		resolver: resolver,
		topK:     topK,
		log:      log.With("component", "rag"),
	}
}

// Answer embeds the query, retrieves the topK most similar chunks, and asks
// the completion model for a cited answer. Store and embedding failures
// propagate; a completion failure is reported through Answer.CompletionErr
// with a descriptive string in Answer.Text.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) (domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = p.topK
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := p.store.Search(ctx, vectors[0], topK, nil)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("searching: %w", err)
	}

	prompt := p.buildPrompt(query, hits)
	text, err := p.llm.Complete(ctx, prompt, answerMaxToken, 0)
	if err != nil {
		p.log.Error("completion failed", "error", err)
		return domain.Answer{
			Text:          fmt.Sprintf("[completion error] %v", err),
			Retrieved:     hits,
			CompletionErr: err,
		}, nil
	}
	return domain.Answer{Text: text, Retrieved: hits}, nil
}

// buildPrompt renders retrieval hits as provenance-annotated context blocks,
// in store order, and wraps them with the question.
func (p *Pipeline) buildPrompt(query string, hits []domain.RetrievalResult) string {
	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		source := "unknown"
		if s, ok := hit.Payload[domain.PayloadSource].(string); ok {
			source = s
		}
		chunkIndex := -1
		if n, ok := payloadInt(hit.Payload[domain.PayloadChunkIndex]); ok {
			chunkIndex = n
		}
		text, ok := hit.Payload[domain.PayloadText].(string)
		if !ok {
			text = missingText
			if p.resolver != nil {
				if resolved, found := p.resolver.ResolveText(hit.Payload); found {
					text = resolved
				}
			}
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s (chunk:%d)\n%s", source, chunkIndex, text))
	}
	context := strings.Join(blocks, blockSeparator)
	return fmt.Sprintf(promptTemplate, context, query)
}

func payloadInt(v any) (int, bool) {
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
