package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"microbiogeo/domain/core"
	"microbiogeo/internal/errors"
	"microbiogeo/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// resultRow mirrors a stat_results row
type resultRow struct {
	RunID         string          `db:"run_id"`
	Position      int             `db:"position"`
	JobKey        string          `db:"job_key"`
	Method        string          `db:"method"`
	StatisticName string          `db:"statistic_name"`
	Statistic     sql.NullFloat64 `db:"statistic"`
	PValue        sql.NullFloat64 `db:"p_value"`
	Permutations  int             `db:"permutations"`
	Auxiliary     []byte          `db:"auxiliary"`
	Payload       []byte          `db:"payload"`
	Error         string          `db:"error"`
	CreatedAt     time.Time       `db:"created_at"`
}

func toRow(rec ports.ResultRecord) (resultRow, error) {
	aux := rec.Auxiliary
	if aux == nil {
		aux = map[string]float64{}
	}
	auxJSON, err := json.Marshal(aux)
	if err != nil {
		return resultRow{}, fmt.Errorf("marshal auxiliary of %q: %w", rec.JobKey, err)
	}
	row := resultRow{
		RunID:         rec.RunID.String(),
		Position:      rec.Position,
		JobKey:        rec.JobKey,
		Method:        rec.Method,
		StatisticName: rec.StatisticName,
		Permutations:  rec.Permutations,
		Auxiliary:     auxJSON,
		Error:         rec.Error,
		CreatedAt:     rec.CreatedAt,
	}
	if len(rec.Payload) > 0 {
		row.Payload = rec.Payload
	}
	if rec.Statistic != nil {
		row.Statistic = sql.NullFloat64{Float64: *rec.Statistic, Valid: true}
	}
	if rec.PValue != nil {
		row.PValue = sql.NullFloat64{Float64: *rec.PValue, Valid: true}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func (row resultRow) toRecord() (ports.ResultRecord, error) {
	rec := ports.ResultRecord{
		RunID:         core.RunID(row.RunID),
		Position:      row.Position,
		JobKey:        row.JobKey,
		Method:        row.Method,
		StatisticName: row.StatisticName,
		Permutations:  row.Permutations,
		Error:         row.Error,
		CreatedAt:     row.CreatedAt,
	}
	if row.Statistic.Valid {
		v := row.Statistic.Float64
		rec.Statistic = &v
	}
	if row.PValue.Valid {
		v := row.PValue.Float64
		rec.PValue = &v
	}
	if len(row.Auxiliary) > 0 {
		if err := json.Unmarshal(row.Auxiliary, &rec.Auxiliary); err != nil {
			return rec, fmt.Errorf("failed to unmarshal auxiliary: %w", err)
		}
	}
	if len(row.Payload) > 0 {
		rec.Payload = json.RawMessage(row.Payload)
	}
	return rec, nil
}

// SaveResults stores all records in one transaction
func (r *ResultRepositoryImpl) SaveResults(ctx context.Context, records []ports.ResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]resultRow, len(records))
	for i, rec := range records {
		row, err := toRow(rec)
		if err != nil {
			return errors.Wrap(err, "failed to encode result")
		}
		rows[i] = row
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO stat_results (
				run_id, position, job_key, method, statistic_name, statistic,
				p_value, permutations, auxiliary, payload, error, created_at
			) VALUES (
				:run_id, :position, :job_key, :method, :statistic_name, :statistic,
				:p_value, :permutations, :auxiliary, :payload, :error, :created_at
			)
			ON CONFLICT (run_id, position) DO UPDATE SET
				job_key = EXCLUDED.job_key,
				method = EXCLUDED.method,
				statistic_name = EXCLUDED.statistic_name,
				statistic = EXCLUDED.statistic,
				p_value = EXCLUDED.p_value,
				permutations = EXCLUDED.permutations,
				auxiliary = EXCLUDED.auxiliary,
				payload = EXCLUDED.payload,
				error = EXCLUDED.error`, row)
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert result %d of run %s", row.Position, row.RunID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit results", err)
	}
	return nil
}

// GetResultsByRun returns a run's records ordered by position
func (r *ResultRepositoryImpl) GetResultsByRun(ctx context.Context, runID core.RunID) ([]ports.ResultRecord, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, position, job_key, method, statistic_name, statistic,
			   p_value, permutations, auxiliary, payload, error, created_at
		FROM stat_results
		WHERE run_id = $1
		ORDER BY position`, runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to query results", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("run " + runID.String())
	}

	records := make([]ports.ResultRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode result %d", row.Position)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListRuns returns the most recent run IDs, newest first
func (r *ResultRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]core.RunID, error) {
	query := `
		SELECT run_id
		FROM stat_results
		GROUP BY run_id
		ORDER BY MAX(created_at) DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	out := make([]core.RunID, len(ids))
	for i, id := range ids {
		out[i] = core.RunID(id)
	}
	return out, nil
}
