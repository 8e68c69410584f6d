package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/extract"
	"docqa/internal/vectorstore/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIngestor(t *testing.T, store domain.VectorStore, opts Options) *Ingestor {
	t.Helper()
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 100
		opts.Overlap = 10
		opts.SentenceBoundary = true
		opts.StoreText = true
	}
	ing, err := New(extract.NewRegistry(), embedding.NewHashEmbedder(32), store, nil, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ing
}

func TestIngestFileStoresAllChunks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt",
		"First sentence of the document. Second sentence with more words in it. "+
			"Third sentence closes the passage. Fourth one for good measure.")

	store := memory.NewStore()
	ing := newTestIngestor(t, store, Options{})
	count, err := ing.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Fatal("no chunks stored")
	}

	emb, _ := embedding.NewHashEmbedder(32).Embed(ctx, []string{"document sentence"})
	results, err := store.Search(ctx, emb[0], count+5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != count {
		t.Fatalf("stored %d points, reported %d chunks", len(results), count)
	}
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.ID] {
			t.Errorf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
		if r.Payload[domain.PayloadSource] != "doc.txt" {
			t.Errorf("source = %v", r.Payload[domain.PayloadSource])
		}
		if _, ok := r.Payload[domain.PayloadAbsPath].(string); !ok {
			t.Error("abs_path missing")
		}
		if _, ok := r.Payload[domain.PayloadChunkIndex].(int); !ok {
			t.Error("chunk_index missing")
		}
		if _, ok := r.Payload[domain.PayloadText].(string); !ok {
			t.Error("text missing with StoreText enabled")
		}
	}
}

func TestReingestGeneratesFreshIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "A small file. Just two sentences.")

	store := memory.NewStore()
	ing := newTestIngestor(t, store, Options{})
	first, err := ing.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ing.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	emb, _ := embedding.NewHashEmbedder(32).Embed(ctx, []string{"small file sentences"})
	results, err := store.Search(ctx, emb[0], first+second+5, nil)
	if err != nil {
		t.Fatal(err)
	}
	// ids are freshly generated each time, so re-ingestion doubles the points
	if len(results) != first+second {
		t.Errorf("got %d points, want %d", len(results), first+second)
	}
}

func TestIngestDirectorySkipsFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "Readable content here. It has sentences.")
	writeFile(t, dir, "broken.pdf", "not actually a pdf")
	writeFile(t, dir, "ignored.docx", "unsupported extension")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "nested.txt", "Not visited. Ingestion is non-recursive.")

	store := memory.NewStore()
	ing := newTestIngestor(t, store, Options{})
	count, err := ing.Ingest(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Fatal("good.txt was not ingested")
	}
	emb, _ := embedding.NewHashEmbedder(32).Embed(ctx, []string{"readable content"})
	results, err := store.Search(ctx, emb[0], 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if src := r.Payload[domain.PayloadSource]; src != "good.txt" {
			t.Errorf("unexpected source %v", src)
		}
	}
}

func TestIngestEmptyFileReturnsZero(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "   \n\t ")
	ing := newTestIngestor(t, memory.NewStore(), Options{})
	count, err := ing.Ingest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestPointerModeRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt",
		"Alpha sentence opens the file. Beta sentence follows directly after. Gamma sentence ends it.")

	store := memory.NewStore()
	opts := Options{ChunkSize: 60, Overlap: 0, SentenceBoundary: true, StoreText: false}
	ing := newTestIngestor(t, store, opts)
	count, err := ing.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Fatal("nothing ingested")
	}

	emb, _ := embedding.NewHashEmbedder(32).Embed(ctx, []string{"alpha sentence"})
	results, err := store.Search(ctx, emb[0], count, nil)
	if err != nil {
		t.Fatal(err)
	}
	resolver := NewResolver(extract.NewRegistry())
	for _, r := range results {
		if _, ok := r.Payload[domain.PayloadText]; ok {
			t.Error("text stored despite pointer mode")
		}
		text, ok := resolver.ResolveText(r.Payload)
		if !ok {
			t.Fatalf("pointer in %v did not resolve", r.Payload)
		}
		if text == "" {
			t.Error("resolved text is empty")
		}
	}
}

func TestProgressCallback(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "One. Two. Three. Four. Five. Six.")

	var calls []int
	opts := Options{
		ChunkSize: 12, Overlap: 0, SentenceBoundary: true, StoreText: true,
		BatchSize: 2,
		Progress:  func(done, total int) { calls = append(calls, done) },
	}
	ing := newTestIngestor(t, memory.NewStore(), opts)
	count, err := ing.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) == 0 {
		t.Fatal("progress callback never invoked")
	}
	if calls[len(calls)-1] != count {
		t.Errorf("final progress %d, want %d", calls[len(calls)-1], count)
	}
}
