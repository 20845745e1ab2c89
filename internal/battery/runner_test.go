package battery

import (
	"bytes"
	"context"
	"math"
	"testing"

	"microbiogeo/adapters/memory"
	"microbiogeo/adapters/rng"
	"microbiogeo/adapters/stats/methods"
	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal"
	"microbiogeo/internal/testkit"
	"microbiogeo/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func overviewJobs(t *testing.T) []Job {
	t.Helper()
	gen, err := testkit.NewGradientStudyGenerator(context.Background(), rng.NewStreamAdapter(), testkit.DefaultGradientConfig())
	require.NoError(t, err)
	study, err := gen.Generate()
	require.NoError(t, err)
	dm := testkit.OverviewDistanceMatrix()
	md := testkit.OverviewMetadataMap()
	return []Job{
		{Key: "overview/self", Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}, Permutations: intPtr(19)},
		{Key: "overview/Treatment", Method: MethodAnosim, Matrices: []*distmat.DistanceMatrix{dm}, Metadata: md, Categories: []string{"Treatment"}, Permutations: intPtr(19)},
		{Key: "overview/missing", Method: MethodPermanova, Matrices: []*distmat.DistanceMatrix{dm}, Metadata: md, Categories: []string{"pH"}},
		{Key: "gradient/pH", Method: MethodBioEnv, Matrices: []*distmat.DistanceMatrix{study.Community}, Metadata: study.Metadata, Categories: []string{"pH", "Temperature"}},
		{Key: "gradient/correlogram", Method: MethodCorrelogram, Matrices: []*distmat.DistanceMatrix{study.Community, study.Geographic}, Permutations: intPtr(9)},
		{Key: "gradient/partial", Method: MethodPartialMantel, Matrices: []*distmat.DistanceMatrix{study.Community, study.Geographic, study.Community}, Permutations: intPtr(9)},
		{Key: "moran", Method: MethodMoransI, MoransI: &MoransIInput{Observed: 0.3, Expected: 0.1, StdDev: 0.1}},
	}
}

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)
}

func TestRunner_RunsAllJobsInOrder(t *testing.T) {
	repo := memory.NewResultRepository()
	runner := NewRunner(rng.NewStreamAdapter(), Options{Workers: 3, Seed: 42, Logger: quietLogger(), Repository: repo})

	jobs := overviewJobs(t)
	report, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, len(jobs))
	assert.False(t, report.Finished.Before(report.Started))

	for i, o := range report.Outcomes {
		assert.Equal(t, jobs[i].Key, o.Key)
		assert.Equal(t, jobs[i].Method, o.Method)
	}

	mantel := report.Outcomes[0]
	require.NoError(t, mantel.Err)
	assert.InDelta(t, 1.0, mantel.Summary.Statistic, 1e-12)
	assert.Equal(t, 19, mantel.Summary.Permutations)

	anosim := report.Outcomes[1]
	require.NoError(t, anosim.Err)
	assert.InDelta(t, 0.8125, anosim.Summary.Statistic, 1e-12)

	failed := report.Outcomes[2]
	assert.True(t, core.IsParameterError(failed.Err))
	assert.NotEmpty(t, failed.Error)
	assert.Nil(t, failed.Result)
	assert.Equal(t, 1, report.Failed())

	bioenv, ok := report.Outcomes[3].Result.(*methods.BioEnvResult)
	require.True(t, ok)
	assert.Equal(t, []string{"pH"}, bioenv.Rows[0].Variables)

	moran := report.Outcomes[6]
	require.NoError(t, moran.Err)
	assert.InDelta(t, 0.04550026389635842, *moran.Summary.PValue, 1e-9)

	recs, err := repo.GetResultsByRun(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Len(t, recs, len(jobs))
	assert.Equal(t, "overview/missing", recs[2].JobKey)
	assert.NotEmpty(t, recs[2].Error)
	assert.Nil(t, recs[2].Statistic)
	assert.NotEmpty(t, recs[0].Payload)
}

func TestRunner_ReplaysWithSameRunID(t *testing.T) {
	runID := core.NewRunID()
	run := func(workers int) []float64 {
		runner := NewRunner(rng.NewStreamAdapter(), Options{Workers: workers, Seed: 7, Logger: quietLogger()})
		report, err := runner.RunWithID(context.Background(), runID, overviewJobs(t))
		require.NoError(t, err)
		res, ok := report.Outcomes[1].Result.(*methods.AnosimResult)
		require.True(t, ok)
		return res.Permuted
	}
	assert.Equal(t, run(1), run(4))
}

func TestRunner_DefaultsApply(t *testing.T) {
	dm := testkit.OverviewDistanceMatrix()
	runner := NewRunner(rng.NewStreamAdapter(), Options{
		Workers:  2,
		Logger:   quietLogger(),
		Defaults: &Defaults{Permutations: 0, Alpha: 0.05},
	})
	_, out, err := runner.RunOne(context.Background(), Job{Key: "k", Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}})
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, 0, out.Summary.Permutations)
	assert.Nil(t, out.Summary.PValue)
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(rng.NewStreamAdapter(), Options{Workers: 2, Logger: quietLogger()})
	_, err := runner.Run(ctx, overviewJobs(t))
	assert.ErrorIs(t, err, context.Canceled)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) SaveResults(ctx context.Context, records []ports.ResultRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *mockRepository) GetResultsByRun(ctx context.Context, runID core.RunID) ([]ports.ResultRecord, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]ports.ResultRecord), args.Error(1)
}

func (m *mockRepository) ListRuns(ctx context.Context, limit int) ([]core.RunID, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]core.RunID), args.Error(1)
}

func TestRunner_RepositoryFailure(t *testing.T) {
	repo := &mockRepository{}
	repo.On("SaveResults", mock.Anything, mock.AnythingOfType("[]ports.ResultRecord")).Return(assert.AnError)

	dm := testkit.OverviewDistanceMatrix()
	runner := NewRunner(rng.NewStreamAdapter(), Options{Workers: 1, Logger: quietLogger(), Repository: repo})
	report, err := runner.Run(context.Background(), []Job{{Key: "k", Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}, Permutations: intPtr(3)}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	require.NotNil(t, report)
	repo.AssertExpectations(t)
}

func TestRecords_NonFiniteStatistic(t *testing.T) {
	runner := NewRunner(rng.NewStreamAdapter(), Options{Logger: quietLogger()})
	res, err := methods.NewMoransIResult(0.1, 0, 0, 1)
	require.NoError(t, err)
	summary := res.Summary()
	summary.Statistic = math.Inf(1)
	summary.Auxiliary["z"] = math.NaN()

	recs := runner.Records(&Report{RunID: core.NewRunID(), Outcomes: []Outcome{{Key: "k", Method: MethodMoransI, Result: res, Summary: summary}}})
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Statistic)
	assert.NotContains(t, recs[0].Auxiliary, "z")
	assert.Contains(t, recs[0].Auxiliary, "expected")
	assert.NotEmpty(t, recs[0].Payload)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("partial-mantel")
	require.NoError(t, err)
	assert.Equal(t, MethodPartialMantel, m)

	m, err = ParseMethod("correlogram")
	require.NoError(t, err)
	assert.Equal(t, MethodCorrelogram, m)

	_, err = ParseMethod("mrpp")
	assert.True(t, core.IsParameterError(err))
}

func TestExecute_Validation(t *testing.T) {
	dm := testkit.OverviewDistanceMatrix()
	defaults := Defaults{Permutations: 3, Alpha: 0.05}

	_, err := execute(Job{Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm}}, defaults, nil)
	assert.True(t, core.IsParameterError(err))

	_, err = execute(Job{Method: MethodAnosim, Matrices: []*distmat.DistanceMatrix{dm}, Metadata: testkit.OverviewMetadataMap()}, defaults, nil)
	assert.True(t, core.IsParameterError(err))

	_, err = execute(Job{Method: MethodMoransI}, defaults, nil)
	assert.True(t, core.IsParameterError(err))

	_, err = execute(Job{Method: "mrpp"}, defaults, nil)
	assert.True(t, core.IsParameterError(err))

	alpha := 3.0
	_, err = execute(Job{Method: MethodCorrelogram, Matrices: []*distmat.DistanceMatrix{dm, dm}, Alpha: &alpha}, defaults, testkit.NewRollingPermuter())
	assert.True(t, core.IsParameterError(err))
}

func TestExecute_Ceilings(t *testing.T) {
	dm := testkit.OverviewDistanceMatrix()
	md := testkit.OverviewMetadataMap()
	defaults := Defaults{Permutations: 3, Alpha: 0.05, MaxPermutations: 10, MaxBioEnvCategories: 1}

	_, err := execute(Job{Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}, Permutations: intPtr(11)}, defaults, testkit.NewRollingPermuter())
	assert.True(t, core.IsParameterError(err))

	res, err := execute(Job{Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}, Permutations: intPtr(10)}, defaults, testkit.NewRollingPermuter())
	require.NoError(t, err)
	assert.Equal(t, 10, res.Summary().Permutations)

	_, err = execute(Job{Method: MethodBioEnv, Matrices: []*distmat.DistanceMatrix{dm}, Metadata: md, Categories: []string{"DOB", "Treatment"}}, defaults, nil)
	assert.True(t, core.IsParameterError(err))

	unbounded := Defaults{Permutations: 3, Alpha: 0.05}
	res, err = execute(Job{Method: MethodAnosim, Matrices: []*distmat.DistanceMatrix{dm}, Metadata: md, Categories: []string{"Treatment"}, Permutations: intPtr(50)}, unbounded, testkit.NewRollingPermuter())
	require.NoError(t, err)
	assert.Equal(t, 50, res.Summary().Permutations)
}

func TestNewRunner_DefaultCeilings(t *testing.T) {
	runner := NewRunner(rng.NewStreamAdapter(), Options{Logger: quietLogger()})
	assert.Equal(t, DefaultMaxPermutations, runner.defaults.MaxPermutations)
	assert.Equal(t, DefaultMaxBioEnvCategories, runner.defaults.MaxBioEnvCategories)

	dm := testkit.OverviewDistanceMatrix()
	_, out, err := runner.RunOne(context.Background(), Job{Key: "big", Method: MethodMantel, Matrices: []*distmat.DistanceMatrix{dm, dm}, Permutations: intPtr(DefaultMaxPermutations + 1)})
	require.NoError(t, err)
	assert.True(t, core.IsParameterError(out.Err))
}
