package memory

import (
	"context"

	recallerr "github.com/viant/recall/errors"
)

// ReconcileReport describes what Reconcile changed.
type ReconcileReport struct {
	Records       int `json:"records"`
	VectorsBefore int `json:"vectors_before"`
	VectorsAfter  int `json:"vectors_after"`
	Truncated     int `json:"truncated"`
	Appended      int `json:"appended"`
	Dropped       int `json:"dropped"`
}

// Changed reports whether the index or the records were modified.
func (r ReconcileReport) Changed() bool {
	return r.Truncated > 0 || r.Appended > 0 || r.Dropped > 0
}

type reconcileOptions struct {
	dropUnjournaled bool
}

// ReconcileOption configures Reconcile.
type ReconcileOption func(*reconcileOptions)

// DropUnjournaled makes Reconcile delete the records from the first one
// that has neither a vector nor a journal entry onward, instead of failing.
func DropUnjournaled() ReconcileOption {
	return func(o *reconcileOptions) {
		o.dropUnjournaled = true
	}
}

// Reconcile realigns the index with the records. Surplus vectors are
// truncated; missing vectors are restored from the embedding journal in
// record order. A missing journal entry is a storage error and leaves the
// vectors restored so far in place, unless DropUnjournaled is given.
func (m *Manager) Reconcile(ctx context.Context, opts ...ReconcileOption) (ReconcileReport, error) {
	var o reconcileOptions
	for _, opt := range opts {
		opt(&o)
	}
	store, idx, release, err := m.open(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	defer release()

	rows, err := store.FetchAllMemories(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{Records: len(rows), VectorsBefore: idx.Len()}

	if idx.Len() > len(rows) {
		report.Truncated = idx.Len() - len(rows)
		if err := idx.Truncate(len(rows)); err != nil {
			return report, err
		}
	}
	for pos := idx.Len(); pos < len(rows); pos++ {
		id := rows[pos].ID
		embedding, err := store.JournalEmbedding(ctx, id)
		if err != nil {
			report.VectorsAfter = idx.Len()
			if recallerr.IsNotFound(err) && o.dropUnjournaled {
				dropped, err := store.DeleteMemoriesFrom(ctx, id)
				if err != nil {
					return report, err
				}
				m.cache.clear()
				report.Dropped = dropped
				report.Records = pos
				m.log.Warn("dropped records without a recoverable vector",
					"from_id", id, "dropped", dropped)
				break
			}
			if recallerr.IsNotFound(err) {
				return report, recallerr.New(recallerr.CodeStoreInvariantMisaligned,
					"no journaled embedding to restore; index cannot be realigned",
					recallerr.FieldID(id), recallerr.FieldPosition(pos))
			}
			return report, err
		}
		got, err := idx.Append(embedding)
		if err != nil {
			report.VectorsAfter = idx.Len()
			return report, recallerr.Wrap(err, recallerr.CodeStoreStorageFailure, "restore journaled vector",
				recallerr.FieldID(id), recallerr.FieldPosition(pos))
		}
		if got != pos {
			report.VectorsAfter = idx.Len()
			return report, recallerr.New(recallerr.CodeStoreInvariantMisaligned,
				"restored vector landed at an unexpected position",
				recallerr.FieldID(id), recallerr.FieldPosition(got))
		}
		report.Appended++
	}
	report.VectorsAfter = idx.Len()
	m.log.Debug("memory store reconciled",
		"records", report.Records, "truncated", report.Truncated, "appended", report.Appended, "dropped", report.Dropped)
	return report, nil
}
