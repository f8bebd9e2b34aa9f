package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimensions is the engine-wide default vector width.
const DefaultDimensions = 384

// HashEncoder is a deterministic, dependency-free encoder: each token
// hashes into a handful of vector slots and the result is unit-normalized.
// Texts sharing vocabulary land near each other, which is enough for the
// engine's retrieval semantics, and identical text always produces the
// identical vector, which is what replay validation needs. Any external
// encoder honoring ports.Encoder can be swapped in.
type HashEncoder struct {
	dims int
}

// NewHashEncoder creates an encoder with the given dimension; dims <= 0
// falls back to DefaultDimensions.
func NewHashEncoder(dims int) *HashEncoder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEncoder{dims: dims}
}

// Dimensions implements ports.Encoder.
func (h *HashEncoder) Dimensions() int {
	return h.dims
}

// Embed implements ports.Encoder.
func (h *HashEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.encode(text)
	}
	return out, nil
}

func (h *HashEncoder) encode(text string) []float32 {
	vec := make([]float32, h.dims)
	for _, token := range tokenize(text) {
		hash := fnv.New64a()
		hash.Write([]byte(token))
		n := hash.Sum64()
		// Spread each token over three slots with alternating sign so
		// vectors stay dense enough for meaningful cosine overlap.
		for j := 0; j < 3; j++ {
			slot := int((n >> (j * 16)) % uint64(h.dims))
			sign := float32(1)
			if (n>>(j*16+15))&1 == 1 {
				sign = -1
			}
			vec[slot] += sign
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
