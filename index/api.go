package index

import (
	"fmt"

	"github.com/viant/recall/index/flat"
	"github.com/viant/recall/index/vptree"
)

// Index defines a positional vector index. Vectors are addressed by their
// zero-based insertion position and searched by squared Euclidean distance.
type Index interface {
	// Dim returns the vector dimension accepted by the index.
	Dim() int

	// Len returns the number of stored vectors.
	Len() int

	// Append stores v at position Len() and returns that position.
	Append(v []float32) (int, error)

	// Vector returns a copy of the vector at position.
	Vector(position int) ([]float32, bool)

	// Truncate drops every vector at position n and beyond.
	Truncate(n int) error

	// Search returns up to k positions with their squared L2 distances,
	// nearest first; ties are broken by lower position.
	Search(query []float32, k int) (positions []int, distances []float32, err error)

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// Kind selects an Index implementation.
type Kind string

const (
	KindFlat   Kind = "flat"
	KindVPTree Kind = "vptree"
)

// Neighbor is a single search hit.
type Neighbor struct {
	Position int
	Distance float32
}

// ParseKind validates a kind name; empty selects KindFlat.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case "", KindFlat:
		return KindFlat, nil
	case KindVPTree:
		return KindVPTree, nil
	}
	return "", fmt.Errorf("index: unknown kind %q", name)
}

// New returns an empty index of the given kind.
func New(kind Kind, dim int) Index {
	if kind == KindVPTree {
		return vptree.New(dim)
	}
	return flat.New(dim)
}
