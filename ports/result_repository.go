package ports

import (
	"context"
	"encoding/json"
	"time"

	"microbiogeo/domain/core"
)

// ResultRecord is one persisted method outcome of a run.
type ResultRecord struct {
	RunID         core.RunID         `json:"run_id" db:"run_id"`
	Position      int                `json:"position" db:"position"`
	JobKey        string             `json:"job_key" db:"job_key"`
	Method        string             `json:"method" db:"method"`
	StatisticName string             `json:"statistic_name" db:"statistic_name"`
	Statistic     *float64           `json:"statistic" db:"statistic"`
	PValue        *float64           `json:"p_value" db:"p_value"`
	Permutations  int                `json:"permutations" db:"permutations"`
	Auxiliary     map[string]float64 `json:"auxiliary,omitempty" db:"-"`
	Payload       json.RawMessage    `json:"payload,omitempty" db:"-"`
	Error         string             `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

// ResultRepository stores and retrieves run results
type ResultRepository interface {
	// SaveResults stores all records of one run atomically
	SaveResults(ctx context.Context, records []ResultRecord) error

	// GetResultsByRun returns a run's records ordered by position
	GetResultsByRun(ctx context.Context, runID core.RunID) ([]ResultRecord, error)

	// ListRuns returns the most recent run IDs, newest first
	ListRuns(ctx context.Context, limit int) ([]core.RunID, error)
}
