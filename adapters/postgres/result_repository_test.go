package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"microbiogeo/domain/core"
	"microbiogeo/internal/migration"
	"microbiogeo/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowConversion(t *testing.T) {
	stat := 0.8125
	p := 0.001
	rec := ports.ResultRecord{
		RunID:         core.NewRunID(),
		Position:      2,
		JobKey:        "overview/Treatment",
		Method:        "anosim",
		StatisticName: "R",
		Statistic:     &stat,
		PValue:        &p,
		Permutations:  999,
		Auxiliary:     map[string]float64{"groups": 2},
		Payload:       []byte(`{"r_value":0.8125}`),
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	row, err := toRow(rec)
	require.NoError(t, err)
	assert.True(t, row.Statistic.Valid)
	assert.JSONEq(t, `{"groups":2}`, string(row.Auxiliary))

	back, err := row.toRecord()
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestRowConversion_NullsAndDefaults(t *testing.T) {
	row, err := toRow(ports.ResultRecord{RunID: core.NewRunID(), JobKey: "bad", Method: "mantel", Error: "boom"})
	require.NoError(t, err)
	assert.False(t, row.Statistic.Valid)
	assert.False(t, row.PValue.Valid)
	assert.Nil(t, row.Payload)
	assert.Equal(t, "{}", string(row.Auxiliary))
	assert.False(t, row.CreatedAt.IsZero())

	back, err := row.toRecord()
	require.NoError(t, err)
	assert.Nil(t, back.Statistic)
	assert.Empty(t, back.Auxiliary)
}

// TestResultRepository_Postgres runs against TEST_DATABASE_URL when set.
func TestResultRepository_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	repo := NewResultRepository(db)
	runID := core.NewRunID()
	stat := 1.0
	require.NoError(t, repo.SaveResults(ctx, []ports.ResultRecord{
		{RunID: runID, Position: 0, JobKey: "a", Method: "mantel", StatisticName: "r", Statistic: &stat, Permutations: 9},
		{RunID: runID, Position: 1, JobKey: "b", Method: "anosim", Error: "category missing"},
	}))

	recs, err := repo.GetResultsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].JobKey)
	assert.Equal(t, "category missing", recs[1].Error)

	runs, err := repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.RunID{runID}, runs)
}
