// Package memory holds in-process adapters used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"microbiogeo/domain/core"
	"microbiogeo/internal/errors"
	"microbiogeo/ports"
)

// ResultRepository keeps run results in memory.
type ResultRepository struct {
	mu    sync.RWMutex
	runs  map[core.RunID][]ports.ResultRecord
	order []core.RunID
}

// NewResultRepository creates an empty in-memory result repository
func NewResultRepository() *ResultRepository {
	return &ResultRepository{runs: make(map[core.RunID][]ports.ResultRecord)}
}

// SaveResults stores the records, replacing any earlier records of the same run.
func (r *ResultRepository) SaveResults(ctx context.Context, records []ports.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byRun := make(map[core.RunID][]ports.ResultRecord)
	for _, rec := range records {
		byRun[rec.RunID] = append(byRun[rec.RunID], rec)
	}
	for runID, recs := range byRun {
		if _, seen := r.runs[runID]; !seen {
			r.order = append(r.order, runID)
		}
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Position < recs[j].Position })
		r.runs[runID] = recs
	}
	return nil
}

// GetResultsByRun returns a copy of a run's records.
func (r *ResultRepository) GetResultsByRun(ctx context.Context, runID core.RunID) ([]ports.ResultRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs, ok := r.runs[runID]
	if !ok {
		return nil, errors.NotFound("run " + runID.String())
	}
	return append([]ports.ResultRecord(nil), recs...), nil
}

// ListRuns returns up to limit run IDs, newest first; limit <= 0 means all.
func (r *ResultRepository) ListRuns(ctx context.Context, limit int) ([]core.RunID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.RunID
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.order[i])
	}
	return out, nil
}

var _ ports.ResultRepository = (*ResultRepository)(nil)
