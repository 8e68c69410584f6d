package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Store is a minimal REST client for a qdrant collection. Distance is always
// cosine; the collection is created on first use if absent.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection checks for the collection and creates it with the given
// vector size and cosine distance if missing.
func (s *Store) EnsureCollection(ctx context.Context, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: vector size %d", vectorstore.ErrCollectionMismatch, vectorSize)
	}
	if _, err := s.do(ctx, http.MethodGet, "/collections/"+s.collection, nil); err == nil {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	_, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body)
	return err
}

// Upsert writes points with replace semantics for existing ids.
func (s *Store) Upsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return fmt.Errorf("%w: ids/vectors/payloads lengths %d/%d/%d", vectorstore.ErrCollectionMismatch, len(ids), len(vectors), len(payloads))
	}
	if len(ids) == 0 {
		return nil
	}
	points := make([]map[string]any, len(ids))
	for i := range ids {
		points[i] = map[string]any{
			"id":      ids[i],
			"vector":  vectors[i],
			"payload": payloads[i],
		}
	}
	_, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points?wait=true", map[string]any{"points": points})
	return err
}

// Search runs a top-k similarity query. The filter is passed through to
// qdrant unmodified.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		req["filter"] = filter
	}
	data, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", req)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", vectorstore.ErrUnavailable, err)
	}
	results := make([]domain.RetrievalResult, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		results = append(results, domain.RetrievalResult{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

func (s *Store) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		// qdrant reports vector size problems as client errors mentioning the
		// dimension; surface those as a mismatch rather than an outage.
		if resp.StatusCode < 500 && strings.Contains(strings.ToLower(msg), "dimension") {
			return nil, fmt.Errorf("%w: qdrant %s %s: %s", vectorstore.ErrCollectionMismatch, method, path, msg)
		}
		return nil, fmt.Errorf("%w: qdrant %s %s: status %d: %s", vectorstore.ErrUnavailable, method, path, resp.StatusCode, msg)
	}
	return data, nil
}
