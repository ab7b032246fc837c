package records

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/viant/recall/engine"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/vector"
)

// TimeFormat renders UTC timestamps with microseconds and an explicit offset,
// e.g. 2024-05-01T09:30:00.123456+00:00.
const TimeFormat = "2006-01-02T15:04:05.000000-07:00"

// Memory is a stored caption row. Rows are never mutated or deleted.
type Memory struct {
	ID        int64  `json:"id"`
	Caption   string `json:"caption"`
	Modality  string `json:"modality"`
	Timestamp string `json:"timestamp"`
	FilePath  string `json:"filepath"`
}

// Reflection is a free-form summary row, independent of memories.
type Reflection struct {
	ID        int64  `json:"id"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
	Tags      string `json:"tags"`
}

// Stats summarizes table sizes.
type Stats struct {
	Memories    int   `json:"memories"`
	MaxID       int64 `json:"max_id"`
	Reflections int   `json:"reflections"`
	Journaled   int   `json:"journaled"`
}

// JournalHit is a journal row ranked by squared L2 distance.
type JournalHit struct {
	ID       int64
	Distance float64
}

// Store is an open handle on the records file.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Exists reports whether a records file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Initialize creates the records file and its tables. It is idempotent.
func Initialize(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return recallerr.Storage(err, "create records directory", recallerr.FieldPath(path))
	}
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := ensureSchema(ctx, db); err != nil {
		return recallerr.Storage(err, "create records schema", recallerr.FieldPath(path))
	}
	return nil
}

// Open opens an initialized records file. A missing file or schema yields a
// not-initialized error.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if !Exists(path) {
		return nil, notInitialized(path)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	ok, err := hasSchema(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, recallerr.Storage(err, "inspect records schema", recallerr.FieldPath(path))
	}
	if !ok {
		_ = db.Close()
		return nil, notInitialized(path)
	}
	// files written before the journal existed gain the table here
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, recallerr.Storage(err, "migrate records schema", recallerr.FieldPath(path))
	}
	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func open(path string) (*sql.DB, error) {
	if err := engine.RegisterVectorFunctions(nil); err != nil {
		return nil, recallerr.Storage(err, "register vector functions", recallerr.FieldPath(path))
	}
	db, err := engine.OpenFile(path)
	if err != nil {
		return nil, recallerr.Storage(err, "open records file", recallerr.FieldPath(path))
	}
	return db, nil
}

func notInitialized(path string) error {
	return recallerr.New(recallerr.CodeMemoryNotInitialized,
		"records store is not initialized; run initialize first", recallerr.FieldPath(path))
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the records file path.
func (s *Store) Path() string { return s.path }

func (s *Store) stamp() string {
	return s.now().UTC().Format(TimeFormat)
}

// InsertMemory stores a memory row stamped with the current UTC time and
// returns its id. A non-empty embedding is journaled in the same transaction.
func (s *Store) InsertMemory(ctx context.Context, caption, modality, filePath string, embedding []float32) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.storage(err, "begin memory insert")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO memories(caption, modality, timestamp, filepath) VALUES(?, ?, ?, ?)`,
		caption, modality, s.stamp(), filePath)
	if err != nil {
		return 0, s.storage(err, "insert memory")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.storage(err, "read memory id")
	}
	if blob := vector.EncodeEmbedding(embedding); blob != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memory_embeddings(memory_id, embedding) VALUES(?, ?)`, id, blob); err != nil {
			return 0, s.storage(err, "journal embedding", recallerr.FieldID(id))
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, s.storage(err, "commit memory insert", recallerr.FieldID(id))
	}
	return id, nil
}

// FetchAllMemories returns every memory row in ascending id order.
func (s *Store) FetchAllMemories(ctx context.Context) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(caption, ''), COALESCE(modality, ''), COALESCE(timestamp, ''), COALESCE(filepath, '')
		 FROM memories ORDER BY id`)
	if err != nil {
		return nil, s.storage(err, "query memories")
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.Caption, &m.Modality, &m.Timestamp, &m.FilePath); err != nil {
			return nil, s.storage(err, "scan memory")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storage(err, "iterate memories")
	}
	return out, nil
}

// Memory returns the row with the given id.
func (s *Store) Memory(ctx context.Context, id int64) (*Memory, error) {
	m := &Memory{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(caption, ''), COALESCE(modality, ''), COALESCE(timestamp, ''), COALESCE(filepath, '')
		 FROM memories WHERE id = ?`, id).Scan(&m.ID, &m.Caption, &m.Modality, &m.Timestamp, &m.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recallerr.New(recallerr.CodeMemoryRecordNotFound, "memory not found", recallerr.FieldID(id))
	}
	if err != nil {
		return nil, s.storage(err, "query memory", recallerr.FieldID(id))
	}
	return m, nil
}

// DeleteMemoriesFrom removes every memory with id >= id together with its
// journal entry and returns the number of rows removed. The next insert
// reuses id.
func (s *Store) DeleteMemoriesFrom(ctx context.Context, id int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.storage(err, "begin memory delete")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_embeddings WHERE memory_id >= ?`, id); err != nil {
		return 0, s.storage(err, "delete journal entries", recallerr.FieldID(id))
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id >= ?`, id)
	if err != nil {
		return 0, s.storage(err, "delete memories", recallerr.FieldID(id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.storage(err, "count deleted memories", recallerr.FieldID(id))
	}
	if err := tx.Commit(); err != nil {
		return 0, s.storage(err, "commit memory delete", recallerr.FieldID(id))
	}
	return int(n), nil
}

// InsertReflection stores a reflection stamped with the current UTC time and
// returns its id.
func (s *Store) InsertReflection(ctx context.Context, summary, tags string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections(summary, timestamp, tags) VALUES(?, ?, ?)`,
		summary, s.stamp(), tags)
	if err != nil {
		return 0, s.storage(err, "insert reflection")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.storage(err, "read reflection id")
	}
	return id, nil
}

// FetchReflections returns every reflection in ascending id order.
func (s *Store) FetchReflections(ctx context.Context) ([]Reflection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(summary, ''), COALESCE(timestamp, ''), COALESCE(tags, '') FROM reflections ORDER BY id`)
	if err != nil {
		return nil, s.storage(err, "query reflections")
	}
	defer rows.Close()

	var out []Reflection
	for rows.Next() {
		var r Reflection
		if err := rows.Scan(&r.ID, &r.Summary, &r.Timestamp, &r.Tags); err != nil {
			return nil, s.storage(err, "scan reflection")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storage(err, "iterate reflections")
	}
	return out, nil
}

// Stats returns row counts for every table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM memories),
		(SELECT COALESCE(MAX(id), 0) FROM memories),
		(SELECT COUNT(*) FROM reflections),
		(SELECT COUNT(*) FROM memory_embeddings)`).Scan(&st.Memories, &st.MaxID, &st.Reflections, &st.Journaled)
	if err != nil {
		return Stats{}, s.storage(err, "query stats")
	}
	return st, nil
}

// JournalEmbedding returns the journaled embedding of a memory.
func (s *Store) JournalEmbedding(ctx context.Context, id int64) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM memory_embeddings WHERE memory_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recallerr.New(recallerr.CodeMemoryRecordNotFound, "no journaled embedding", recallerr.FieldID(id))
	}
	if err != nil {
		return nil, s.storage(err, "query journal", recallerr.FieldID(id))
	}
	v, err := vector.DecodeEmbedding(blob)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeStoreStorageFailure, "decode journal", recallerr.FieldID(id))
	}
	return v, nil
}

// NearestJournal ranks journaled embeddings by squared L2 distance to query
// inside SQLite, nearest first with ties broken by lower id.
func (s *Store) NearestJournal(ctx context.Context, query []float32, k int) ([]JournalHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_id, vec_l2sq(embedding, ?) AS distance
		 FROM memory_embeddings
		 ORDER BY distance, memory_id
		 LIMIT ?`, vector.EncodeEmbedding(query), k)
	if err != nil {
		return nil, s.storage(err, "rank journal")
	}
	defer rows.Close()

	var out []JournalHit
	for rows.Next() {
		var hit JournalHit
		if err := rows.Scan(&hit.ID, &hit.Distance); err != nil {
			return nil, s.storage(err, "scan journal hit")
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storage(err, "iterate journal")
	}
	return out, nil
}

func (s *Store) storage(err error, msg string, fields ...recallerr.Attr) error {
	return recallerr.Storage(err, msg, append([]recallerr.Attr{recallerr.FieldPath(s.path)}, fields...)...)
}
