package flat

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"math"

	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/vector"
)

const (
	magic     = "RCLF"
	version   = 1
	headerLen = 4 + 4 + 4 + 8
)

// Index is an append-only flat vector index. Vectors are addressed by their
// insertion position and stored contiguously.
type Index struct {
	dim  int
	data []float32
}

// New returns an empty index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Dim returns the vector dimension.
func (i *Index) Dim() int { return i.dim }

// Len returns the number of stored vectors.
func (i *Index) Len() int {
	if i.dim == 0 {
		return 0
	}
	return len(i.data) / i.dim
}

// Append stores v at the next position and returns that position.
func (i *Index) Append(v []float32) (int, error) {
	if err := vector.Check(v, i.dim); err != nil {
		return -1, err
	}
	pos := i.Len()
	i.data = append(i.data, v...)
	return pos, nil
}

// Vector returns a copy of the vector stored at position.
func (i *Index) Vector(position int) ([]float32, bool) {
	if position < 0 || position >= i.Len() {
		return nil, false
	}
	out := make([]float32, i.dim)
	copy(out, i.at(position))
	return out, true
}

// Truncate drops every vector at position n and beyond.
func (i *Index) Truncate(n int) error {
	if n < 0 || n > i.Len() {
		return fmt.Errorf("flat: truncate to %d out of range [0, %d]", n, i.Len())
	}
	i.data = i.data[:n*i.dim]
	return nil
}

// At returns the stored vector at position without copying. Callers must not
// modify it.
func (i *Index) At(position int) []float32 {
	return i.at(position)
}

func (i *Index) at(position int) []float32 {
	return i.data[position*i.dim : (position+1)*i.dim]
}

// Search returns up to k positions ordered by ascending squared L2 distance;
// equal distances are ordered by lower position.
func (i *Index) Search(query []float32, k int) ([]int, []float32, error) {
	if err := vector.Check(query, i.dim); err != nil {
		return nil, nil, err
	}
	n := i.Len()
	if n == 0 || k <= 0 {
		return nil, nil, nil
	}
	if k > n {
		k = n
	}
	h := make(Candidates, 0, k)
	for pos := 0; pos < n; pos++ {
		d := vector.SquaredL2(query, i.at(pos))
		if math.IsNaN(float64(d)) {
			continue
		}
		h.Offer(Candidate{Position: pos, Distance: d}, k)
	}
	positions, distances := h.Sorted()
	return positions, distances, nil
}

// MarshalBinary stores: magic "RCLF", version(uint32), dim(uint32),
// n(uint64), then n*dim little-endian float32 values.
func (i *Index) MarshalBinary() ([]byte, error) {
	n := i.Len()
	out := make([]byte, headerLen+4*len(i.data))
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], version)
	binary.LittleEndian.PutUint32(out[8:12], uint32(i.dim))
	binary.LittleEndian.PutUint64(out[12:20], uint64(n))
	off := headerLen
	for _, v := range i.data {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
		off += 4
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerLen {
		return recallerr.New(recallerr.CodeStoreStorageFailure, "flat: index data too short",
			recallerr.Field("size", len(data)))
	}
	if string(data[0:4]) != magic {
		return recallerr.New(recallerr.CodeStoreStorageFailure, "flat: not a vector index file")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != version {
		return recallerr.Errorf(recallerr.CodeStoreStorageFailure, "flat: unsupported index version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := binary.LittleEndian.Uint64(data[12:20])
	if dim <= 0 {
		return recallerr.Errorf(recallerr.CodeStoreStorageFailure, "flat: invalid dimension %d", dim)
	}
	payload := uint64(len(data) - headerLen)
	if n > payload || n*uint64(dim)*4 != payload {
		return recallerr.Errorf(recallerr.CodeStoreStorageFailure,
			"flat: header declares %d vectors of dim %d, payload holds %d bytes", n, dim, payload)
	}
	values := make([]float32, n*uint64(dim))
	off := headerLen
	for j := range values {
		values[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	i.dim = dim
	i.data = values
	return nil
}

// Candidate is a scored position.
type Candidate struct {
	Position int
	Distance float32
}

// worse reports whether a ranks after b.
func worse(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Position > b.Position
}

// Candidates is a bounded max-heap keeping the k best candidates; the worst
// kept candidate sits at the root.
type Candidates []Candidate

func (h Candidates) Len() int           { return len(h) }
func (h Candidates) Less(a, b int) bool { return worse(h[a], h[b]) }
func (h Candidates) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }

func (h *Candidates) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *Candidates) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Offer keeps c if the heap holds fewer than k candidates or c ranks before
// the current worst.
func (h *Candidates) Offer(c Candidate, k int) {
	if h.Len() < k {
		heap.Push(h, c)
		return
	}
	if worse((*h)[0], c) {
		(*h)[0] = c
		heap.Fix(h, 0)
	}
}

// Worst returns the lowest-ranked kept candidate.
func (h Candidates) Worst() (Candidate, bool) {
	if len(h) == 0 {
		return Candidate{}, false
	}
	return h[0], true
}

// Sorted drains the heap into best-first parallel slices.
func (h *Candidates) Sorted() ([]int, []float32) {
	n := h.Len()
	positions := make([]int, n)
	distances := make([]float32, n)
	for j := n - 1; j >= 0; j-- {
		c := heap.Pop(h).(Candidate)
		positions[j] = c.Position
		distances[j] = c.Distance
	}
	return positions, distances
}
