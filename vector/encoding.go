package vector

import (
	"encoding/binary"
	"math"

	recallerr "github.com/viant/recall/errors"
)

// EncodeEmbedding packs v as little-endian float32 values with no length
// prefix, the layout used for journal BLOBs and the vec_* SQL functions.
// A nil or empty vector encodes to nil (SQL NULL).
func EncodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

// DecodeEmbedding reverses EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, recallerr.New(recallerr.CodeStoreStorageFailure, "embedding blob length is not a multiple of 4",
			recallerr.Field("size", len(b)))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
