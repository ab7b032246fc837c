package vptree

import (
	"math"
	"sort"
	"sync"

	"github.com/viant/recall/index/flat"
	"github.com/viant/recall/vector"
)

// slack widens the pruning radius to absorb float32 rounding in the ranked
// distances.
const slack = 1e-4

// Index is an exact VP-tree over a flat positional store.
type Index struct {
	*flat.Index
	mu    sync.Mutex
	root  *node
	built int
}

type node struct {
	position int
	radius   float64
	inside   *node // distance to vantage <= radius
	outside  *node // distance to vantage >= radius
}

// New returns an empty index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{Index: flat.New(dim), built: -1}
}

// Search returns up to k positions ordered by ascending squared L2 distance;
// equal distances are ordered by lower position.
func (t *Index) Search(query []float32, k int) ([]int, []float32, error) {
	if err := vector.Check(query, t.Dim()); err != nil {
		return nil, nil, err
	}
	n := t.Len()
	if n == 0 || k <= 0 {
		return nil, nil, nil
	}
	if k > n {
		k = n
	}
	root := t.tree()
	h := make(flat.Candidates, 0, k)
	t.search(root, query, k, &h)
	positions, distances := h.Sorted()
	return positions, distances, nil
}

// Truncate drops every vector at position n and beyond.
func (t *Index) Truncate(n int) error {
	if err := t.Index.Truncate(n); err != nil {
		return err
	}
	t.invalidate()
	return nil
}

// UnmarshalBinary restores the underlying flat store.
func (t *Index) UnmarshalBinary(data []byte) error {
	if t.Index == nil {
		t.Index = &flat.Index{}
	}
	if err := t.Index.UnmarshalBinary(data); err != nil {
		return err
	}
	t.invalidate()
	return nil
}

func (t *Index) invalidate() {
	t.mu.Lock()
	t.root = nil
	t.built = -1
	t.mu.Unlock()
}

func (t *Index) tree() *node {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.Len()
	if t.built == n {
		return t.root
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	t.root = t.build(positions)
	t.built = n
	return t.root
}

type ranked struct {
	position int
	distance float64
}

func (t *Index) build(positions []int) *node {
	if len(positions) == 0 {
		return nil
	}
	last := len(positions) - 1
	nd := &node{position: positions[last]}
	rest := positions[:last]
	if len(rest) == 0 {
		return nd
	}
	vantage := t.At(nd.position)
	items := make([]ranked, len(rest))
	for i, p := range rest {
		items[i] = ranked{position: p, distance: metric(vantage, t.At(p))}
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].distance != items[b].distance {
			return items[a].distance < items[b].distance
		}
		return items[a].position < items[b].position
	})
	mid := len(items) / 2
	nd.radius = items[mid].distance
	inside := make([]int, 0, mid)
	for _, it := range items[:mid] {
		inside = append(inside, it.position)
	}
	outside := make([]int, 0, len(items)-mid)
	for _, it := range items[mid:] {
		outside = append(outside, it.position)
	}
	nd.inside = t.build(inside)
	nd.outside = t.build(outside)
	return nd
}

func (t *Index) search(nd *node, query []float32, k int, h *flat.Candidates) {
	if nd == nil {
		return
	}
	v := t.At(nd.position)
	d := vector.SquaredL2(query, v)
	if !math.IsNaN(float64(d)) {
		h.Offer(flat.Candidate{Position: nd.position, Distance: d}, k)
	}
	if nd.inside == nil && nd.outside == nil {
		return
	}
	dist := metric(query, v)
	first, second := nd.inside, nd.outside
	insideFirst := dist <= nd.radius
	if !insideFirst {
		first, second = second, first
	}
	if visit(insideFirst, dist, nd.radius, h, k) {
		t.search(first, query, k, h)
	}
	if visit(!insideFirst, dist, nd.radius, h, k) {
		t.search(second, query, k, h)
	}
}

// visit reports whether a subtree may still hold a candidate that ranks
// before the current worst. NaN comparisons fall through to true.
func visit(inside bool, dist, radius float64, h *flat.Candidates, k int) bool {
	if h.Len() < k {
		return true
	}
	worst, _ := h.Worst()
	tau := math.Sqrt(float64(worst.Distance))*(1+slack) + 1e-6
	if inside {
		return !(dist-tau > radius)
	}
	return !(dist+tau < radius)
}

func metric(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
