package battery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"microbiogeo/adapters/rng"
	"microbiogeo/adapters/stats/methods"
	"microbiogeo/domain/core"
	"microbiogeo/internal"
	"microbiogeo/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Key      string          `json:"key"`
	Method   Method          `json:"method"`
	Summary  methods.Summary `json:"summary"`
	Result   methods.Result  `json:"result,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
}

// Report is the outcome of a battery, in job order.
type Report struct {
	RunID    core.RunID `json:"run_id"`
	Seed     int64      `json:"seed"`
	Outcomes []Outcome  `json:"outcomes"`
	Started  time.Time  `json:"started"`
	Finished time.Time  `json:"finished"`
}

// Failed counts the outcomes that carry an error.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Options configures a Runner.
type Options struct {
	Workers  int
	Seed     int64
	Defaults *Defaults // nil uses the method defaults
	Logger   *internal.Logger
	// Repository, when set, receives every report.
	Repository ports.ResultRepository
}

// Runner executes batteries of jobs with a bounded worker pool. Each job
// holds capacity proportional to its method's cost, so expensive methods
// run with less company.
type Runner struct {
	rng      ports.RNGPort
	workers  int
	seed     int64
	defaults Defaults
	capacity *semaphore.Weighted
	logger   *internal.Logger
	repo     ports.ResultRepository
}

// NewRunner creates a battery runner
func NewRunner(rngPort ports.RNGPort, opts Options) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	defaults := Defaults{
		Permutations:        methods.DefaultPermutations,
		Alpha:               methods.DefaultAlpha,
		MaxPermutations:     DefaultMaxPermutations,
		MaxBioEnvCategories: DefaultMaxBioEnvCategories,
	}
	if opts.Defaults != nil {
		defaults = *opts.Defaults
	}
	return &Runner{
		rng:      rngPort,
		workers:  workers,
		seed:     opts.Seed,
		defaults: defaults,
		capacity: semaphore.NewWeighted(int64(workers)),
		logger:   logger.With("battery"),
		repo:     opts.Repository,
	}
}

// Run executes every job and returns the outcomes in job order. A failing
// job does not stop the others; its error is recorded in its outcome. Run
// itself fails only when ctx ends before all jobs started or persisting
// the report fails.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Report, error) {
	return r.RunWithID(ctx, core.NewRunID(), jobs)
}

// RunWithID is Run under a caller-chosen run ID. Reusing a run ID with the
// same seed and jobs replays the same permutations.
func (r *Runner) RunWithID(ctx context.Context, runID core.RunID, jobs []Job) (*Report, error) {
	report := &Report{
		RunID:    runID,
		Seed:     r.seed,
		Outcomes: make([]Outcome, len(jobs)),
		Started:  time.Now().UTC(),
	}
	r.logger.Info("run %s: starting %d jobs with %d workers", report.RunID, len(jobs), r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		i, job := i, job
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			cost := min(methodCost[job.Method], int64(r.workers))
			if cost < 1 {
				cost = 1
			}
			if err := r.capacity.Acquire(gctx, cost); err != nil {
				return err
			}
			defer r.capacity.Release(cost)

			report.Outcomes[i] = r.runJob(gctx, report.RunID, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %s interrupted: %w", report.RunID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s interrupted: %w", report.RunID, err)
	}
	report.Finished = time.Now().UTC()

	if failed := report.Failed(); failed > 0 {
		r.logger.Warn("run %s: %d of %d jobs failed", report.RunID, failed, len(jobs))
	}
	r.logger.Info("run %s: finished in %s", report.RunID, report.Finished.Sub(report.Started))

	if r.repo != nil {
		if err := r.repo.SaveResults(ctx, r.Records(report)); err != nil {
			return report, fmt.Errorf("save run %s: %w", report.RunID, err)
		}
	}
	return report, nil
}

// RunOne executes a single job as a one-job battery.
func (r *Runner) RunOne(ctx context.Context, job Job) (*Report, Outcome, error) {
	report, err := r.Run(ctx, []Job{job})
	if report == nil {
		return nil, Outcome{}, err
	}
	return report, report.Outcomes[0], err
}

func (r *Runner) runJob(ctx context.Context, runID core.RunID, job Job) Outcome {
	start := time.Now()
	out := Outcome{Key: job.Key, Method: job.Method}

	permuter, err := rng.Permuter(ctx, r.rng, runID.String(), string(job.Method), job.Key, r.seed)
	if err == nil {
		var result methods.Result
		result, err = execute(job, r.defaults, permuter)
		if err == nil {
			out.Result = result
			out.Summary = result.Summary()
		}
	}
	if err != nil {
		out.Err = err
		out.Error = err.Error()
		r.logger.Debug("run %s: job %q (%s) failed: %v", runID, job.Key, job.Method, err)
	}
	out.Duration = time.Since(start)
	r.logger.Trace("run %s: job %q (%s) took %s", runID, job.Key, job.Method, out.Duration)
	return out
}

// Records converts a report into repository records. Non-finite statistics
// are stored as null and non-finite auxiliary values are dropped.
func (r *Runner) Records(report *Report) []ports.ResultRecord {
	records := make([]ports.ResultRecord, len(report.Outcomes))
	for i, o := range report.Outcomes {
		rec := ports.ResultRecord{
			RunID:         report.RunID,
			Position:      i,
			JobKey:        o.Key,
			Method:        string(o.Method),
			StatisticName: o.Summary.StatisticName,
			PValue:        o.Summary.PValue,
			Permutations:  o.Summary.Permutations,
			Auxiliary:     finiteValues(o.Summary.Auxiliary),
			Error:         o.Error,
			CreatedAt:     report.Finished,
		}
		if o.Result != nil {
			s := o.Summary.Statistic
			if !math.IsNaN(s) && !math.IsInf(s, 0) {
				rec.Statistic = &s
			}
			payload, err := json.Marshal(o.Result)
			if err != nil {
				r.logger.Warn("run %s: job %q result not serializable: %v", report.RunID, o.Key, err)
			} else {
				rec.Payload = payload
			}
		}
		records[i] = rec
	}
	return records
}

func finiteValues(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
