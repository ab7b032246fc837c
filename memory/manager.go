package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/index"
	"github.com/viant/recall/records"
	"github.com/viant/recall/vector"
)

// Manager coordinates the record store and the vector index.
type Manager struct {
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
	cache     *recordCache
	indexOpts []index.Option
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides the timestamp source for new rows.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRecordCache toggles caching of the ordered memory rows between
// searches.
func WithRecordCache(enabled bool) Option {
	return func(m *Manager) {
		m.cfg.CacheRecords = enabled
	}
}

// WithIndexOptions passes extra options to every index file the Manager
// opens.
func WithIndexOptions(opts ...index.Option) Option {
	return func(m *Manager) {
		m.indexOpts = append(m.indexOpts, opts...)
	}
}

// Hit is a search result with its squared L2 distance.
type Hit struct {
	Memory   records.Memory
	Position int
	Distance float32
}

// Stats reports the size of both stores.
type Stats struct {
	records.Stats
	Vectors   int  `json:"vectors"`
	Dimension int  `json:"dimension"`
	Aligned   bool `json:"aligned"`
}

// New builds a Manager. It does not touch the backing files.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Dimension <= 0 {
		return nil, recallerr.Errorf(recallerr.CodeConfigValidateInvalidValue,
			"memory: dimension must be greater than 0, got %d", cfg.Dimension)
	}
	if cfg.SQLitePath == "" || cfg.IndexPath == "" {
		return nil, recallerr.New(recallerr.CodeConfigValidateInvalidValue, "memory: backing file paths must be set")
	}
	if cfg.Kind == "" {
		cfg.Kind = index.KindFlat
	}
	m := &Manager{cfg: cfg, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.CacheRecords {
		c, err := newRecordCache()
		if err != nil {
			return nil, recallerr.Wrap(err, recallerr.CodeStoreStorageFailure, "create record cache")
		}
		m.cache = c
	}
	return m, nil
}

// Close releases the record cache.
func (m *Manager) Close() error {
	m.cache.close()
	return nil
}

// Dimension returns the embedding width accepted by the index.
func (m *Manager) Dimension() int { return m.cfg.Dimension }

// Initialize creates the backing files if absent and, when configured,
// realigns the index with the records. Existing data is left untouched.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, p := range []string{m.cfg.SQLitePath, m.cfg.IndexPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return recallerr.Storage(err, "create data directory", recallerr.FieldPath(p))
		}
	}
	if err := records.Initialize(ctx, m.cfg.SQLitePath); err != nil {
		return err
	}
	idx, err := index.OpenOrCreate(m.cfg.IndexPath, m.cfg.Dimension, m.indexOptions()...)
	if err != nil {
		return err
	}
	_ = idx.Close()
	m.log.Debug("memory store initialized",
		"sqlite_path", m.cfg.SQLitePath, "index_path", m.cfg.IndexPath, "dimension", m.cfg.Dimension)

	if m.cfg.AutoReconcile {
		report, err := m.Reconcile(ctx)
		if err != nil {
			return err
		}
		if report.Changed() {
			m.log.Warn("memory store realigned on startup",
				"truncated", report.Truncated, "appended", report.Appended, "records", report.Records)
		}
	}
	return nil
}

func (m *Manager) indexOptions() []index.Option {
	return append([]index.Option{index.WithKind(m.cfg.Kind)}, m.indexOpts...)
}

// open acquires both stores; callers must release them with the returned
// function on every path.
func (m *Manager) open(ctx context.Context) (*records.Store, *index.File, func(), error) {
	if !records.Exists(m.cfg.SQLitePath) || !index.Exists(m.cfg.IndexPath) {
		return nil, nil, nil, recallerr.New(recallerr.CodeMemoryNotInitialized,
			"memory store is not initialized; run initialize first",
			recallerr.Field("sqlite_path", m.cfg.SQLitePath), recallerr.Field("index_path", m.cfg.IndexPath))
	}
	store, err := records.Open(ctx, m.cfg.SQLitePath, records.WithClock(m.now))
	if err != nil {
		return nil, nil, nil, err
	}
	idx, err := index.Load(m.cfg.IndexPath, m.cfg.Dimension, m.indexOptions()...)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	release := func() {
		_ = idx.Close()
		_ = store.Close()
	}
	return store, idx, release, nil
}

// AddMemory stores a caption row and appends its embedding at position
// id-1. A failed append after the row commit is reported as a storage error
// and the row is kept; Reconcile restores the vector from the journal.
func (m *Manager) AddMemory(ctx context.Context, caption, modality, filePath string, embedding []float32) (int64, error) {
	if err := vector.Check(embedding, m.cfg.Dimension); err != nil {
		return 0, err
	}
	store, idx, release, err := m.open(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	st, err := store.Stats(ctx)
	if err != nil {
		return 0, err
	}
	if st.Memories != idx.Len() {
		return 0, recallerr.New(recallerr.CodeStoreInvariantMisaligned,
			"index and records are misaligned; run reconcile",
			recallerr.Field("records", st.Memories), recallerr.Field("vectors", idx.Len()))
	}

	var journal []float32
	if m.cfg.Journal {
		journal = embedding
	}
	id, err := store.InsertMemory(ctx, caption, modality, filePath, journal)
	if err != nil {
		return 0, err
	}
	pos, err := idx.Append(embedding)
	if err != nil {
		return 0, recallerr.Wrap(err, recallerr.CodeStoreStorageFailure,
			"record inserted but vector append failed; run reconcile",
			recallerr.FieldID(id), recallerr.FieldPath(m.cfg.IndexPath))
	}
	if int64(pos) != id-1 {
		return 0, recallerr.New(recallerr.CodeStoreInvariantMisaligned,
			"vector position does not match record id",
			recallerr.FieldID(id), recallerr.FieldPosition(pos))
	}
	m.log.Debug("memory added", "id", id, "modality", modality)
	return id, nil
}

// SearchMemory returns up to k memories nearest to query, nearest first.
func (m *Manager) SearchMemory(ctx context.Context, query []float32, k int) ([]records.Memory, error) {
	hits, err := m.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]records.Memory, len(hits))
	for i, h := range hits {
		out[i] = h.Memory
	}
	return out, nil
}

// Search is SearchMemory with distances and index positions. Positions
// without a matching row are skipped.
func (m *Manager) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	store, idx, release, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	neighbors, err := idx.Search(query, k)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return []Hit{}, nil
	}
	rows, err := m.orderedRecords(ctx, store)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position < 0 || n.Position >= len(rows) {
			continue
		}
		hits = append(hits, Hit{Memory: rows[n.Position], Position: n.Position, Distance: n.Distance})
	}
	m.log.Debug("memory searched", "k", k, "hits", len(hits))
	return hits, nil
}

func (m *Manager) orderedRecords(ctx context.Context, store *records.Store) ([]records.Memory, error) {
	if m.cache == nil {
		return store.FetchAllMemories(ctx)
	}
	st, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if rows, ok := m.cache.get(st); ok {
		return rows, nil
	}
	rows, err := store.FetchAllMemories(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.put(st, rows)
	return rows, nil
}

// SaveReflection stores a reflection. The index is never touched.
func (m *Manager) SaveReflection(ctx context.Context, summary, tags string) (int64, error) {
	store, _, release, err := m.open(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	id, err := store.InsertReflection(ctx, summary, tags)
	if err != nil {
		return 0, err
	}
	m.log.Debug("reflection saved", "id", id)
	return id, nil
}

// Reflections returns every stored reflection.
func (m *Manager) Reflections(ctx context.Context) ([]records.Reflection, error) {
	store, _, release, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return store.FetchReflections(ctx)
}

// Memories returns every stored memory in id order.
func (m *Manager) Memories(ctx context.Context) ([]records.Memory, error) {
	store, _, release, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return store.FetchAllMemories(ctx)
}

// Stats reports row and vector counts.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	store, idx, release, err := m.open(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer release()
	st, err := store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Stats:     st,
		Vectors:   idx.Len(),
		Dimension: idx.Dim(),
		Aligned:   st.Memories == idx.Len(),
	}, nil
}
