package vector

import (
	"math"

	recallerr "github.com/viant/recall/errors"
)

// DefaultDimension is the embedding width of all-MiniLM-L6-v2.
const DefaultDimension = 384

// Check returns a dimension error when len(v) != dim and an invalid input
// error when any component is NaN or infinite.
func Check(v []float32, dim int) error {
	if len(v) != dim {
		return recallerr.Dimension(len(v), dim)
	}
	for i, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return recallerr.New(recallerr.CodeMemoryInputInvalid, "embedding has a non-finite component",
				recallerr.FieldPosition(i), recallerr.Field("value", f))
		}
	}
	return nil
}

// Normalize returns a unit-length copy of v. Zero vectors are returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	m := Magnitude(v)
	if m == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / m
	}
	return out
}

// Basis returns the dim-wide unit vector with a one at position axis.
func Basis(dim, axis int) []float32 {
	v := make([]float32, dim)
	if axis >= 0 && axis < dim {
		v[axis] = 1
	}
	return v
}
