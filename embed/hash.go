package embed

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/viant/recall/vector"
)

// Hash is a deterministic bag-of-words embedder. Each lower-cased token is
// hashed into one of Dim buckets with a hash-derived sign; the result is
// unit length. Texts sharing words land close to each other, which is
// enough for offline use and tests but carries no semantics.
type Hash struct {
	Dim int
}

// NewHash returns a hashing embedder producing dim-wide vectors.
func NewHash(dim int) *Hash {
	return &Hash{Dim: dim}
}

// Embed hashes text into a unit vector. Text without tokens yields a zero
// vector.
func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, h.Dim)
	if h.Dim <= 0 {
		return v, nil
	}
	for _, token := range tokenize(text) {
		sum := xxhash.Sum64String(token)
		bucket := int(sum % uint64(h.Dim))
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}
	return vector.Normalize(v), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
