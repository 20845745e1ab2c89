package api

import (
	"fmt"
	"net/http"
	"strconv"

	"microbiogeo/domain/core"
	"microbiogeo/internal/battery"
	"microbiogeo/internal/errors"
	"microbiogeo/ports"

	"github.com/gin-gonic/gin"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMethod runs one method as a one-job battery.
func (s *Server) handleMethod(method battery.Method) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		job, err := req.toJob(method, 0)
		if err != nil {
			s.fail(c, err)
			return
		}

		report, outcome, err := s.runner.RunOne(c.Request.Context(), job)
		if report == nil {
			s.fail(c, err)
			return
		}
		if err != nil {
			s.logger.Warn("run %s: %v", report.RunID, err)
		}
		if outcome.Err != nil {
			s.fail(c, outcome.Err)
			return
		}

		fingerprints := make([]core.Hash, len(job.Matrices))
		for i, dm := range job.Matrices {
			fingerprints[i] = dm.Fingerprint()
		}
		s.respond(c, http.StatusOK, MethodResponse{
			RunID:        report.RunID,
			Seed:         report.Seed,
			Fingerprints: fingerprints,
			Result:       s.runner.Records(report)[0],
		})
	}
}

// handleBattery runs every job of the request. Failing jobs are reported
// in their result; the request itself fails only on malformed input.
func (s *Server) handleBattery(c *gin.Context) {
	var req BatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	jobs := make([]battery.Job, len(req.Jobs))
	seen := make(map[string]bool, len(req.Jobs))
	for i, jr := range req.Jobs {
		method, err := battery.ParseMethod(jr.Method)
		if err != nil {
			s.fail(c, errors.Wrapf(err, "job %d", i))
			return
		}
		job, err := jr.toJob(method, i)
		if err != nil {
			s.fail(c, errors.Wrapf(err, "job %d", i))
			return
		}
		if seen[job.Key] {
			s.fail(c, errors.InvalidInput(fmt.Sprintf("job %d: duplicate key %q", i, job.Key)))
			return
		}
		seen[job.Key] = true
		jobs[i] = job
	}

	runID := core.NewRunID()
	if req.RunID != "" {
		id, err := core.ParseRunID(req.RunID)
		if err != nil {
			s.fail(c, errors.InvalidInput(err.Error()))
			return
		}
		runID = id
	}

	report, err := s.runner.RunWithID(c.Request.Context(), runID, jobs)
	if report == nil {
		s.fail(c, err)
		return
	}
	if err != nil {
		s.logger.Warn("run %s: %v", report.RunID, err)
	}

	s.respond(c, http.StatusOK, BatteryResponse{
		RunID:   report.RunID,
		Seed:    report.Seed,
		Failed:  report.Failed(),
		Results: s.runner.Records(report),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.repo == nil {
		s.fail(c, errors.NotFound("result store"))
		return
	}
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			s.fail(c, errors.InvalidInput(fmt.Sprintf("limit must be an integer in [1, %d]", maxRunsLimit)))
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if runs == nil {
		runs = []core.RunID{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetResults(c *gin.Context) {
	if s.repo == nil {
		s.fail(c, errors.NotFound("result store"))
		return
	}
	runID, err := core.ParseRunID(c.Param("runID"))
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return
	}

	records, err := s.repo.GetResultsByRun(c.Request.Context(), runID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []ports.ResultRecord{}
	}
	s.respond(c, http.StatusOK, RunResponse{RunID: runID, Results: records})
}
