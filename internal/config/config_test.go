package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.ChunkSize != 512 || cfg.Chunker.Overlap != 50 {
		t.Errorf("chunker defaults = %d/%d, want 512/50", cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.TopK)
	}
	if cfg.Ingest.BatchSize != 64 {
		t.Errorf("batch_size = %d, want 64", cfg.Ingest.BatchSize)
	}
	if cfg.Auth.TokenTTLHours != 8 {
		t.Errorf("token_ttl_hours = %d, want 8", cfg.Auth.TokenTTLHours)
	}
	if cfg.Embedder.Type != "hash" || cfg.Embedder.Hash == nil || cfg.Embedder.Hash.Dimension != 384 {
		t.Errorf("unexpected embedder defaults: %+v", cfg.Embedder)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	orig := defaultConfig()
	orig.VectorStore.Type = "qdrant"
	orig.VectorStore.Qdrant.Collection = "notes"
	orig.TopK = 3
	if err := Save(path, orig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.VectorStore.Type != "qdrant" || got.VectorStore.Qdrant.Collection != "notes" {
		t.Errorf("vector store = %+v", got.VectorStore)
	}
	if got.TopK != 3 {
		t.Errorf("top_k = %d, want 3", got.TopK)
	}
}

func TestLoadAppliesPartialDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("vector_store:\n  type: qdrant\n  qdrant:\n    url: http://qdrant:6333\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VectorStore.Qdrant.Collection != "documents" {
		t.Errorf("collection = %q, want documents", cfg.VectorStore.Qdrant.Collection)
	}
	if cfg.VectorStore.Qdrant.TimeoutSecs != 20 {
		t.Errorf("timeout = %d, want 20", cfg.VectorStore.Qdrant.TimeoutSecs)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
}

func TestOverlapDefaultWithCustomChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chunker:\n  chunk_size: 1024\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.ChunkSize != 1024 || cfg.Chunker.Overlap != 50 {
		t.Errorf("chunker = %d/%d, want 1024/50", cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	}

	// tiny chunk sizes keep overlap 0 rather than defaulting past the size
	if err := os.WriteFile(path, []byte("chunker:\n  chunk_size: 40\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.Overlap != 0 {
		t.Errorf("overlap = %d, want 0 for chunk_size 40", cfg.Chunker.Overlap)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n\t bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
