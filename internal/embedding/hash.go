package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// HashEmbedder maps text to a fixed-dimension bag-of-words vector by hashing
// tokens into buckets. Deterministic and fully local; used for offline mode
// and as a test double for the remote embedder.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a local embedder with the given dimensionality.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dim: dimension}
}

func (e *HashEmbedder) Name() string { return "hash" }

func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed hashes each lowercase token into a bucket and L2-normalizes the
// resulting counts. Text with no tokens yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := make([]float32, e.dim)
		for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			v[h.Sum32()%uint32(e.dim)]++
		}
		Normalize(v)
		vectors[i] = v
	}
	return vectors, nil
}

// Normalize scales v to unit length in place. A zero vector is left as-is
// rather than divided by zero.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
