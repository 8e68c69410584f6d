package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"docqa/internal/auth"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/extract"
	"docqa/internal/ingest"
	"docqa/internal/llm"
	"docqa/internal/rag"
	"docqa/internal/router"
	"docqa/internal/server"
	"docqa/internal/summarizer"
	"docqa/internal/tui"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

const usage = `Usage: docqa [--config=config.yaml] <command> [args]

Commands:
  ingest <path> [path ...]   extract, chunk, embed and store documents
  ask <question>             answer a question from the stored documents
  tui                        interactive question session
  serve                      run the HTTP API
  hashpass <password>        print a bcrypt hash for the auth user list
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file (default: ./config.yaml, then ~/.config/docqa/config.yaml)")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := dispatch(cfg, args, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dispatch runs one subcommand. Each command builds only the components it
// needs, so offline commands work without completion credentials.
func dispatch(cfg *config.AppConfig, args []string, log *slog.Logger) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ingest":
		return runIngest(cfg, rest, log)
	case "ask":
		pipeline, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}
		return runAsk(pipeline, rest)
	case "tui":
		pipeline, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}
		_, err = tea.NewProgram(tui.New(pipeline)).Run()
		return err
	case "serve":
		return runServe(cfg, log)
	case "hashpass":
		if len(rest) != 1 {
			return fmt.Errorf("hashpass: exactly one password argument is required")
		}
		hash, err := auth.HashPassword(rest[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runIngest(cfg *config.AppConfig, paths []string, log *slog.Logger) error {
	if len(paths) == 0 {
		return fmt.Errorf("ingest: at least one path is required")
	}
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	var bar *progressbar.ProgressBar
	opts := ingestOptions(cfg)
	opts.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "embedding")
		}
		_ = bar.Set(done)
	}
	ing, err := ingest.New(extract.NewRegistry(), emb, store, summarizer.NewFrequency(), opts, log)
	if err != nil {
		return fmt.Errorf("ingest setup: %w", err)
	}
	total := 0
	for _, p := range paths {
		bar = nil
		n, err := ing.Ingest(context.Background(), p)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", p, err)
		}
		total += n
	}
	fmt.Printf("\nstored %d chunks\n", total)
	return nil
}

func runAsk(pipeline *rag.Pipeline, rest []string) error {
	question := strings.TrimSpace(strings.Join(rest, " "))
	if question == "" {
		return fmt.Errorf("ask: a question is required")
	}
	ans, err := pipeline.Answer(context.Background(), question, 0)
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if len(ans.Retrieved) > 0 {
		fmt.Println("\nSources:")
		for _, r := range ans.Retrieved {
			src, _ := r.Payload[domain.PayloadSource].(string)
			if src == "" {
				src = "unknown"
			}
			fmt.Printf("  %s (score %.3f)\n", src, r.Score)
		}
	}
	return nil
}

func runServe(cfg *config.AppConfig, log *slog.Logger) error {
	secret := os.Getenv(cfg.Auth.JWTSecretEnv)
	if secret == "" {
		return fmt.Errorf("serve: %s must be set", cfg.Auth.JWTSecretEnv)
	}
	if len(cfg.Auth.Users) == 0 {
		return fmt.Errorf("serve: no users configured")
	}
	hashes := make(map[string]string, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		hashes[u.Name] = u.PasswordHash
	}
	authSvc := auth.NewService(
		auth.NewInMemoryUserStore(hashes),
		[]byte(secret),
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour,
	)

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	completion, err := buildCompletion(cfg)
	if err != nil {
		return err
	}
	extractors := extract.NewRegistry()
	pipeline := rag.New(emb, store, completion, ingest.NewResolver(extractors), cfg.TopK, log)

	ing, err := ingest.New(extractors, emb, store, summarizer.NewFrequency(), ingestOptions(cfg), log)
	if err != nil {
		return fmt.Errorf("serve setup: %w", err)
	}
	taskRouter := router.New(completion, pipeline.Answer, nil, log)
	srv := server.New(authSvc, taskRouter, ing, log)
	return srv.Run(cfg.Server.Port)
}

func ingestOptions(cfg *config.AppConfig) ingest.Options {
	return ingest.Options{
		ChunkSize:        cfg.Chunker.ChunkSize,
		Overlap:          cfg.Chunker.Overlap,
		SentenceBoundary: !cfg.Chunker.FixedWidth,
		StoreText:        !cfg.Ingest.PointerOnly,
		BatchSize:        cfg.Ingest.BatchSize,
	}
}

func buildPipeline(cfg *config.AppConfig, log *slog.Logger) (*rag.Pipeline, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	completion, err := buildCompletion(cfg)
	if err != nil {
		return nil, err
	}
	resolver := ingest.NewResolver(extract.NewRegistry())
	return rag.New(emb, store, completion, resolver, cfg.TopK, log), nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hash", "":
		dim := 0
		if cfg.Embedder.Hash != nil {
			dim = cfg.Embedder.Hash.Dimension
		}
		return embedding.NewHashEmbedder(dim), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Dimension: cfg.Embedder.OpenAI.Dimension,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildStore(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStore(), nil
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func buildCompletion(cfg *config.AppConfig) (domain.CompletionClient, error) {
	return llm.NewOpenAIClient(llm.Config{
		BaseURL:   cfg.Completion.BaseURL,
		APIKeyEnv: cfg.Completion.APIKeyEnv,
		Model:     cfg.Completion.Model,
		Timeout:   time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
