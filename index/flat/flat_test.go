package flat

import (
	"testing"

	recallerr "github.com/viant/recall/errors"
)

func TestIndex_AppendSearch(t *testing.T) {
	idx := New(3)
	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
	for want, v := range vecs {
		pos, err := idx.Append(v)
		if err != nil {
			t.Fatalf("Append(%v) failed: %v", v, err)
		}
		if pos != want {
			t.Fatalf("Append position = %d, want %d", pos, want)
		}
	}
	if idx.Len() != len(vecs) {
		t.Fatalf("Len = %d, want %d", idx.Len(), len(vecs))
	}

	positions, distances, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(positions))
	}
	if positions[0] != 0 || distances[0] != 0 {
		t.Fatalf("nearest = (%d, %v), want (0, 0)", positions[0], distances[0])
	}
	// {1,1,0} and {0,1,0}/{0,0,1} are all at squared distance 1 or 2; {1,1,0} is 1.
	if positions[1] != 3 || distances[1] != 1 {
		t.Fatalf("second = (%d, %v), want (3, 1)", positions[1], distances[1])
	}
}

func TestIndex_SearchTiesByPosition(t *testing.T) {
	idx := New(2)
	for _, v := range [][]float32{{0, 1}, {1, 0}, {0, -1}, {-1, 0}} {
		if _, err := idx.Append(v); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	positions, _, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for i, p := range positions {
		if p != i {
			t.Fatalf("positions = %v, want [0 1 2 3]", positions)
		}
	}
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	idx := New(2)
	positions, _, err := idx.Search([]float32{1, 0}, 5)
	if err != nil || len(positions) != 0 {
		t.Fatalf("empty Search = %v, %v; want empty, nil", positions, err)
	}

	if _, err := idx.Append([]float32{1, 0}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	positions, _, err = idx.Search([]float32{1, 0}, 10)
	if err != nil || len(positions) != 1 {
		t.Fatalf("k > n Search = %v, %v; want 1 result", positions, err)
	}
	positions, _, err = idx.Search([]float32{1, 0}, 0)
	if err != nil || len(positions) != 0 {
		t.Fatalf("k = 0 Search = %v, %v; want empty", positions, err)
	}
	if _, _, err := idx.Search([]float32{1}, 1); !recallerr.IsDimension(err) {
		t.Fatalf("short query err = %v, want dimension error", err)
	}
}

func TestIndex_AppendDimensionMismatch(t *testing.T) {
	idx := New(3)
	if _, err := idx.Append([]float32{1, 2}); !recallerr.IsDimension(err) {
		t.Fatalf("Append err = %v, want dimension error", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len = %d after rejected append, want 0", idx.Len())
	}
}

func TestIndex_Truncate(t *testing.T) {
	idx := New(1)
	for i := 0; i < 5; i++ {
		if _, err := idx.Append([]float32{float32(i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := idx.Truncate(2); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", idx.Len())
	}
	if err := idx.Truncate(3); err == nil {
		t.Fatalf("Truncate beyond Len should fail")
	}
	v, ok := idx.Vector(1)
	if !ok || v[0] != 1 {
		t.Fatalf("Vector(1) = %v, %v; want [1], true", v, ok)
	}
	if _, ok := idx.Vector(2); ok {
		t.Fatalf("Vector(2) should be out of range after truncate")
	}
}

func TestIndex_MarshalRoundTrip(t *testing.T) {
	idx := New(2)
	for _, v := range [][]float32{{0.5, -1.25}, {3.75, 0}} {
		if _, err := idx.Append(v); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	restored := &Index{}
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Dim() != 2 || restored.Len() != 2 {
		t.Fatalf("restored dim=%d len=%d, want 2/2", restored.Dim(), restored.Len())
	}
	v, _ := restored.Vector(0)
	if v[0] != 0.5 || v[1] != -1.25 {
		t.Fatalf("restored[0] = %v, want [0.5 -1.25]", v)
	}

	empty, err := New(4).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary(empty) failed: %v", err)
	}
	if err := restored.UnmarshalBinary(empty); err != nil {
		t.Fatalf("UnmarshalBinary(empty) failed: %v", err)
	}
	if restored.Dim() != 4 || restored.Len() != 0 {
		t.Fatalf("restored empty dim=%d len=%d, want 4/0", restored.Dim(), restored.Len())
	}
}

func TestIndex_UnmarshalCorrupt(t *testing.T) {
	idx := New(2)
	if _, err := idx.Append([]float32{1, 2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	data, _ := idx.MarshalBinary()

	cases := map[string][]byte{
		"short":     data[:8],
		"magic":     append([]byte("XXXX"), data[4:]...),
		"truncated": data[:len(data)-2],
	}
	for name, payload := range cases {
		if err := (&Index{}).UnmarshalBinary(payload); !recallerr.IsStorage(err) {
			t.Fatalf("%s: UnmarshalBinary err = %v, want storage error", name, err)
		}
	}
}
