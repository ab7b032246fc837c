package vector

import (
	"math"
	"testing"

	recallerr "github.com/viant/recall/errors"
)

func TestCheck(t *testing.T) {
	if err := Check(make([]float32, 4), 4); err != nil {
		t.Fatalf("Check(4, 4) = %v, want nil", err)
	}
	err := Check(make([]float32, 3), 4)
	if !recallerr.IsDimension(err) {
		t.Fatalf("Check(3, 4) = %v, want dimension error", err)
	}
}

func TestNormalize(t *testing.T) {
	n := Normalize([]float32{3, 4})
	if math.Abs(float64(n[0])-0.6) > 1e-6 || math.Abs(float64(n[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize(3,4) = %v, want [0.6 0.8]", n)
	}
	z := Normalize([]float32{0, 0})
	if z[0] != 0 || z[1] != 0 {
		t.Fatalf("Normalize(0,0) = %v, want zeros", z)
	}
}

func TestBasis(t *testing.T) {
	v := Basis(384, 1)
	if len(v) != 384 || v[1] != 1 || v[0] != 0 {
		t.Fatalf("Basis(384, 1) unexpected: len=%d v[0]=%v v[1]=%v", len(v), v[0], v[1])
	}
}

func TestCheck_NonFinite(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		v := []float32{0, 1, bad, 0}
		err := Check(v, 4)
		if !recallerr.IsInvalidInput(err) {
			t.Fatalf("Check(%v) = %v, want invalid input error", v, err)
		}
		if got := recallerr.FieldsOf(err)["position"]; got != 2 {
			t.Fatalf("Check(%v) position = %v, want 2", v, got)
		}
	}
}
