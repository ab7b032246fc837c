package memory

import (
	"context"
	"math"

	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/records"
	"github.com/viant/recall/vector"
)

// Mismatch is one disagreement between the index and the journal.
type Mismatch struct {
	Rank     int    `json:"rank"`
	Position int    `json:"position"`
	ID       int64  `json:"id"`
	Reason   string `json:"reason"`
}

// VerifyReport compares an index search with the same search run over the
// journaled embeddings inside SQLite.
type VerifyReport struct {
	K          int                  `json:"k"`
	Index      []Hit                `json:"-"`
	Journal    []records.JournalHit `json:"-"`
	Mismatches []Mismatch           `json:"mismatches"`
}

// Consistent reports whether no mismatch was found.
func (r VerifyReport) Consistent() bool { return len(r.Mismatches) == 0 }

// Verify searches the index and the journal for query and checks that every
// index hit at position p is backed by journal row p+1 holding the same
// vector, and that both rankings agree up to distance ties.
func (m *Manager) Verify(ctx context.Context, query []float32, k int) (VerifyReport, error) {
	store, idx, release, err := m.open(ctx)
	if err != nil {
		return VerifyReport{}, err
	}
	defer release()

	report := VerifyReport{K: k}
	neighbors, err := idx.Search(query, k)
	if err != nil {
		return report, err
	}
	report.Journal, err = store.NearestJournal(ctx, query, k)
	if err != nil {
		return report, err
	}

	for rank, n := range neighbors {
		id := int64(n.Position) + 1
		report.Index = append(report.Index, Hit{Position: n.Position, Distance: n.Distance, Memory: records.Memory{ID: id}})

		stored, _ := idx.Vector(n.Position)
		journaled, err := store.JournalEmbedding(ctx, id)
		switch {
		case recallerr.IsNotFound(err):
			report.Mismatches = append(report.Mismatches, Mismatch{Rank: rank, Position: n.Position, ID: id, Reason: "no journal entry"})
			continue
		case err != nil:
			return report, err
		case !identical(stored, journaled):
			report.Mismatches = append(report.Mismatches, Mismatch{Rank: rank, Position: n.Position, ID: id, Reason: "vector differs from journal"})
			continue
		}

		if rank >= len(report.Journal) {
			report.Mismatches = append(report.Mismatches, Mismatch{Rank: rank, Position: n.Position, ID: id, Reason: "missing from journal ranking"})
			continue
		}
		j := report.Journal[rank]
		if j.ID != id && !sameDistance(j.Distance, float64(n.Distance)) {
			report.Mismatches = append(report.Mismatches, Mismatch{Rank: rank, Position: n.Position, ID: j.ID, Reason: "ranking differs"})
		}
	}
	if len(report.Journal) > len(neighbors) {
		for rank := len(neighbors); rank < len(report.Journal); rank++ {
			j := report.Journal[rank]
			report.Mismatches = append(report.Mismatches, Mismatch{Rank: rank, Position: int(j.ID - 1), ID: j.ID, Reason: "missing from index ranking"})
		}
	}
	if !report.Consistent() {
		m.log.Warn("index verification found mismatches", "k", k, "mismatches", len(report.Mismatches))
	}
	return report, nil
}

// identical reports whether a and b are the same vector: equal length and an
// L2 distance of exactly zero.
func identical(a, b []float32) bool {
	d, err := vector.L2Distance(a, b)
	return err == nil && d == 0
}

// sameDistance treats float32 and float64 renderings of one distance as a
// tie.
func sameDistance(a, b float64) bool {
	return math.Abs(a-b) <= 1e-5*(1+math.Abs(a))
}
