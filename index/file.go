package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/vector"
)

// File is an index bound to a file on disk. Every mutation is persisted
// before it returns.
type File struct {
	path          string
	kind          Kind
	idx           Index
	beforeReplace func(tmp string) error
}

// Option configures how a File is opened.
type Option func(*File)

// WithKind selects the in-memory index implementation.
func WithKind(kind Kind) Option {
	return func(f *File) {
		if kind != "" {
			f.kind = kind
		}
	}
}

// WithBeforeReplace runs fn on the fully written temp file just before it
// replaces the index file. An error from fn aborts the write and leaves the
// previous file in place.
func WithBeforeReplace(fn func(tmp string) error) Option {
	return func(f *File) {
		f.beforeReplace = fn
	}
}

// Exists reports whether an index file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// OpenOrCreate loads the index at path, or creates and persists an empty one
// of dimension dim when the file does not exist.
func OpenOrCreate(path string, dim int, opts ...Option) (*File, error) {
	if dim <= 0 {
		return nil, recallerr.Dimension(0, dim)
	}
	f := newFile(path, opts)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		f.idx = New(f.kind, dim)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, recallerr.Storage(err, "create index directory", recallerr.FieldPath(path))
		}
		if err := f.persist(); err != nil {
			return nil, err
		}
		return f, nil
	}
	if err := f.load(dim); err != nil {
		return nil, err
	}
	return f, nil
}

// Load opens an existing index file. A missing, corrupt or mismatched file
// yields a storage error.
func Load(path string, dim int, opts ...Option) (*File, error) {
	f := newFile(path, opts)
	if err := f.load(dim); err != nil {
		return nil, err
	}
	return f, nil
}

func newFile(path string, opts []Option) *File {
	f := &File{path: path, kind: KindFlat}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *File) load(dim int) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return recallerr.Storage(err, "read index file", recallerr.FieldPath(f.path))
	}
	idx := New(f.kind, dim)
	if err := idx.UnmarshalBinary(data); err != nil {
		return recallerr.Wrap(err, recallerr.CodeStoreStorageFailure, "decode index file", recallerr.FieldPath(f.path))
	}
	if idx.Dim() != dim {
		return recallerr.New(recallerr.CodeStoreStorageFailure, "index file dimension mismatch",
			recallerr.FieldPath(f.path), recallerr.Field("got", idx.Dim()), recallerr.Field("want", dim))
	}
	f.idx = idx
	return nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Dim returns the vector dimension.
func (f *File) Dim() int { return f.idx.Dim() }

// Len returns the number of stored vectors.
func (f *File) Len() int { return f.idx.Len() }

// Append stores v at position Len() and persists the index. Nothing is
// written when v has the wrong dimension.
func (f *File) Append(v []float32) (int, error) {
	if err := vector.Check(v, f.idx.Dim()); err != nil {
		return -1, err
	}
	pos, err := f.idx.Append(v)
	if err != nil {
		return -1, err
	}
	if err := f.persist(); err != nil {
		_ = f.idx.Truncate(pos)
		return -1, err
	}
	return pos, nil
}

// Vector returns a copy of the vector at position.
func (f *File) Vector(position int) ([]float32, bool) {
	return f.idx.Vector(position)
}

// Truncate drops every vector at position n and beyond, then persists.
func (f *File) Truncate(n int) error {
	if err := f.idx.Truncate(n); err != nil {
		return recallerr.Wrap(err, recallerr.CodeStoreStorageFailure, "truncate index",
			recallerr.FieldPath(f.path), recallerr.FieldPosition(n))
	}
	return f.persist()
}

// Search returns up to k nearest neighbors of query, nearest first.
func (f *File) Search(query []float32, k int) ([]Neighbor, error) {
	positions, distances, err := f.idx.Search(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(positions))
	for i, p := range positions {
		out[i] = Neighbor{Position: p, Distance: distances[i]}
	}
	return out, nil
}

// Close releases the in-memory index.
func (f *File) Close() error {
	f.idx = nil
	return nil
}

func (f *File) persist() (err error) {
	data, err := f.idx.MarshalBinary()
	if err != nil {
		return recallerr.Storage(err, "encode index", recallerr.FieldPath(f.path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return recallerr.Storage(err, "create temp index file", recallerr.FieldPath(f.path))
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return recallerr.Storage(err, "write index file", recallerr.FieldPath(f.path))
	}
	if err = tmp.Sync(); err != nil {
		return recallerr.Storage(err, "sync index file", recallerr.FieldPath(f.path))
	}
	if err = tmp.Close(); err != nil {
		return recallerr.Storage(err, "close index file", recallerr.FieldPath(f.path))
	}
	if f.beforeReplace != nil {
		if err = f.beforeReplace(tmp.Name()); err != nil {
			return recallerr.Storage(err, "write index file", recallerr.FieldPath(f.path))
		}
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return recallerr.Storage(err, "replace index file", recallerr.FieldPath(f.path))
	}
	return nil
}
