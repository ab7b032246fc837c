package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/viant/recall/vector"
)

var registerOnce sync.Once

// RegisterVectorFunctions registers vec_l2sq with the driver so it is
// available on new connections opened after this call.
// Note: existing open connections will not see new functions.
func RegisterVectorFunctions(_ *sql.DB) error {
	registerOnce.Do(func() {
		// The driver rejects duplicates; registration happens once per process.
		_ = sqlite.RegisterDeterministicScalarFunction("vec_l2sq", 2, vecL2SquaredImpl)
	})
	return nil
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

// binaryArgs decodes both embedding arguments; ok is false when either is NULL.
func binaryArgs(name string, args []driver.Value) (a, b []float32, ok bool, err error) {
	if len(args) != 2 {
		return nil, nil, false, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	if a, err = asEmbedding(args[0]); err != nil {
		return nil, nil, false, err
	}
	if b, err = asEmbedding(args[1]); err != nil {
		return nil, nil, false, err
	}
	return a, b, a != nil && b != nil, nil
}

func vecL2SquaredImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, ok, err := binaryArgs("vec_l2sq", args)
	if err != nil || !ok {
		return nil, err
	}
	d, err := l2Squared(a, b)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func l2Squared(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vec: L2 dim mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}
