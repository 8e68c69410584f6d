// Package ingest drives file -> text -> chunks -> vectors -> store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/extract"
)

const defaultBatchSize = 64

// Options control chunking and payload layout for one Ingestor.
type Options struct {
	ChunkSize        int
	Overlap          int
	SentenceBoundary bool
	// StoreText embeds the chunk text in each point's payload. When false a
	// text_pointer is stored instead and text is recovered at answer time by
	// a Resolver.
	StoreText bool
	BatchSize int
	// Progress, when set, is called after every stored batch with the number
	// of chunks done so far and the total for the current file.
	Progress func(done, total int)
}

// Ingestor populates a vector store from files and directories.
type Ingestor struct {
	extractors *extract.Registry
	embedder   domain.Embedder
	store      domain.VectorStore
	splitter   *chunker.Splitter
	summarizer domain.Summarizer
	opts       Options
	log        *slog.Logger
}

// New validates the chunking parameters and returns an Ingestor.
// summarizer may be nil; when present, a short digest of each ingested file
// is logged.
func New(extractors *extract.Registry, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, opts Options, log *slog.Logger) (*Ingestor, error) {
	splitter, err := chunker.New(opts.ChunkSize, opts.Overlap, opts.SentenceBoundary)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		extractors: extractors,
		embedder:   embedder,
		store:      store,
		splitter:   splitter,
		summarizer: summarizer,
		opts:       opts,
		log:        log.With("component", "ingest"),
	}, nil
}

// Ingest processes a file or directory and returns the number of chunks
// stored. Extraction failures are logged and count zero; embedding and store
// failures propagate.
func (ing *Ingestor) Ingest(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", path, err)
	}
	if info.IsDir() {
		return ing.ingestDir(ctx, path)
	}
	return ing.ingestFile(ctx, path)
}

// ingestDir processes every directly contained file with a registered
// extractor. Non-recursive.
func (ing *Ingestor) ingestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", dir, err)
	}
	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !ing.extractors.Supported(entry.Name()) {
			continue
		}
		n, err := ing.ingestFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (ing *Ingestor) ingestFile(ctx context.Context, path string) (int, error) {
	text, err := ing.extractors.Extract(path)
	if err != nil {
		var pe *extract.ParseError
		if errors.As(err, &pe) {
			ing.log.Warn("skipping file", "path", path, "error", err)
			return 0, nil
		}
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		ing.log.Info("no text extracted", "path", path)
		return 0, nil
	}

	chunks := ing.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := ing.store.EnsureCollection(ctx, ing.embedder.Dimension()); err != nil {
		return 0, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	source := filepath.Base(path)

	total := 0
	for start := 0; start < len(chunks); start += ing.opts.BatchSize {
		end := start + ing.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := ing.embedder.Embed(ctx, batch)
		if err != nil {
			return total, fmt.Errorf("embedding batch for %s: %w", source, err)
		}
		ids := make([]string, len(batch))
		payloads := make([]map[string]any, len(batch))
		for j, chunkText := range batch {
			ids[j] = uuid.NewString()
			payload := map[string]any{
				domain.PayloadSource:     source,
				domain.PayloadAbsPath:    absPath,
				domain.PayloadChunkIndex: start + j,
			}
			if ing.opts.StoreText {
				payload[domain.PayloadText] = chunkText
			} else {
				payload[domain.PayloadTextPointer] = ing.pointer(absPath, start+j)
			}
			payloads[j] = payload
		}
		if err := ing.store.Upsert(ctx, ids, vectors, payloads); err != nil {
			return total, fmt.Errorf("upserting batch for %s: %w", source, err)
		}
		total += len(batch)
		if ing.opts.Progress != nil {
			ing.opts.Progress(total, len(chunks))
		}
	}

	ing.log.Info("ingested file", "path", path, "chunks", total)
	if ing.summarizer != nil {
		if summary, err := ing.summarizer.Summarize(text, 2); err == nil && summary != "" {
			ing.log.Info("file digest", "source", source, "summary", summary)
		}
	}
	return total, nil
}

func (ing *Ingestor) pointer(absPath string, chunkIndex int) map[string]any {
	return map[string]any{
		"file":              absPath,
		"chunk_index":       chunkIndex,
		"chunk_size":        ing.opts.ChunkSize,
		"overlap":           ing.opts.Overlap,
		"sentence_boundary": ing.opts.SentenceBoundary,
	}
}
