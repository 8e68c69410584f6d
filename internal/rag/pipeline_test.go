package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/vectorstore/memory"
)

type fakeLLM struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func seedStore(t *testing.T, embedder domain.Embedder) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		t.Fatal(err)
	}
	vectors, err := embedder.Embed(ctx, []string{"The sky is blue."})
	if err != nil {
		t.Fatal(err)
	}
	payloads := []map[string]any{{
		domain.PayloadSource:     "a.txt",
		domain.PayloadChunkIndex: 0,
		domain.PayloadText:       "The sky is blue.",
	}}
	if err := store.Upsert(ctx, []string{"p1"}, vectors, payloads); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestAnswerEndToEnd(t *testing.T) {
	embedder := embedding.NewHashEmbedder(64)
	store := seedStore(t, embedder)
	llm := &fakeLLM{reply: "The sky is blue. Source: a.txt (chunk:0)"}
	p := New(embedder, store, llm, nil, 5, nil)

	answer, err := p.Answer(context.Background(), "What color is the sky?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if answer.CompletionErr != nil {
		t.Fatalf("unexpected completion error: %v", answer.CompletionErr)
	}
	if answer.Text != llm.reply {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Retrieved) != 1 {
		t.Fatalf("retrieved %d results, want 1", len(answer.Retrieved))
	}
	if answer.Retrieved[0].Payload[domain.PayloadSource] != "a.txt" {
		t.Errorf("top hit payload = %v", answer.Retrieved[0].Payload)
	}
	if !strings.Contains(llm.lastPrompt, "Source: a.txt (chunk:0)\nThe sky is blue.") {
		t.Errorf("prompt missing provenance block:\n%s", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "What color is the sky?") {
		t.Error("prompt missing the question")
	}
}

func TestAnswerCompletionFailureReturnsTypedResult(t *testing.T) {
	embedder := embedding.NewHashEmbedder(64)
	store := seedStore(t, embedder)
	llmErr := errors.New("model unreachable")
	p := New(embedder, store, &fakeLLM{err: llmErr}, nil, 5, nil)

	answer, err := p.Answer(context.Background(), "What color is the sky?", 5)
	if err != nil {
		t.Fatalf("pipeline error = %v, completion failures must not propagate", err)
	}
	if !errors.Is(answer.CompletionErr, llmErr) {
		t.Errorf("CompletionErr = %v, want %v", answer.CompletionErr, llmErr)
	}
	if !strings.Contains(answer.Text, "model unreachable") {
		t.Errorf("fallback text = %q", answer.Text)
	}
	if len(answer.Retrieved) != 1 {
		t.Error("retrieved evidence dropped on completion failure")
	}
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	embedder := embedding.NewHashEmbedder(64)
	p := New(embedder, memory.NewStore(), &fakeLLM{}, nil, 5, nil)
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := p.Answer(context.Background(), q, 5); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Answer(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestAnswerMissingPayloadFieldsDefaulted(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewHashEmbedder(64)
	store := memory.NewStore()
	if err := store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		t.Fatal(err)
	}
	vectors, _ := embedder.Embed(ctx, []string{"orphan chunk"})
	if err := store.Upsert(ctx, []string{"x"}, vectors, []map[string]any{{}}); err != nil {
		t.Fatal(err)
	}
	llm := &fakeLLM{reply: "ok"}
	p := New(embedder, store, llm, nil, 5, nil)
	if _, err := p.Answer(ctx, "orphan chunk", 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llm.lastPrompt, "Source: unknown (chunk:-1)\n[text not stored in payload]") {
		t.Errorf("prompt = %q", llm.lastPrompt)
	}
}

type staticResolver struct{ text string }

func (r staticResolver) ResolveText(payload map[string]any) (string, bool) { return r.text, true }

func TestAnswerUsesResolverForPointerPayloads(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewHashEmbedder(64)
	store := memory.NewStore()
	if err := store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		t.Fatal(err)
	}
	vectors, _ := embedder.Embed(ctx, []string{"pointer chunk"})
	payloads := []map[string]any{{
		domain.PayloadSource:      "b.txt",
		domain.PayloadChunkIndex:  3,
		domain.PayloadTextPointer: map[string]any{"file": "/tmp/b.txt"},
	}}
	if err := store.Upsert(ctx, []string{"y"}, vectors, payloads); err != nil {
		t.Fatal(err)
	}
	llm := &fakeLLM{reply: "ok"}
	p := New(embedder, store, llm, staticResolver{text: "recovered text"}, 5, nil)
	if _, err := p.Answer(ctx, "pointer chunk", 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llm.lastPrompt, "Source: b.txt (chunk:3)\nrecovered text") {
		t.Errorf("prompt = %q", llm.lastPrompt)
	}
}
