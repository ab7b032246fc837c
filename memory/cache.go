package memory

import (
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/viant/recall/records"
)

// recordCache holds the ordered memory rows used to map index positions to
// records. Rows are only appended outside of Reconcile, so (count, max id)
// identifies a snapshot; dropping records must clear the cache.
type recordCache struct {
	c *ristretto.Cache
}

func newRecordCache() (*recordCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 10,
		MaxCost:     1 << 22,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &recordCache{c: c}, nil
}

func snapshotKey(st records.Stats) string {
	return fmt.Sprintf("memories:%d:%d", st.Memories, st.MaxID)
}

func (r *recordCache) get(st records.Stats) ([]records.Memory, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.c.Get(snapshotKey(st))
	if !ok {
		return nil, false
	}
	rows, ok := v.([]records.Memory)
	return rows, ok
}

func (r *recordCache) put(st records.Stats, rows []records.Memory) {
	if r == nil {
		return
	}
	cost := int64(len(rows))
	if cost == 0 {
		cost = 1
	}
	if r.c.Set(snapshotKey(st), rows, cost) {
		r.c.Wait()
	}
}

func (r *recordCache) clear() {
	if r != nil {
		r.c.Clear()
	}
}

func (r *recordCache) close() {
	if r != nil {
		r.c.Close()
	}
}
