package api

import (
	"fmt"
	"strings"

	"microbiogeo/adapters/qiime"
	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/battery"
	"microbiogeo/internal/permutation"
	"microbiogeo/ports"
)

// MatrixPayload carries a distance matrix either as labeled rows or as
// QIIME tab-separated text. Text wins when both are given.
type MatrixPayload struct {
	SampleIDs []string    `json:"sample_ids,omitempty"`
	Data      [][]float64 `json:"data,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// MetadataPayload carries sample metadata either as a sample -> category ->
// value map or as QIIME mapping-file text.
type MetadataPayload struct {
	Samples map[string]map[string]string `json:"samples,omitempty"`
	Text    string                       `json:"text,omitempty"`
}

// MethodRequest is the body of every single-method endpoint.
type MethodRequest struct {
	Key          string                `json:"key"`
	Matrices     []MatrixPayload       `json:"matrices"`
	Metadata     *MetadataPayload      `json:"metadata,omitempty"`
	Categories   []string              `json:"categories,omitempty"`
	Permutations *int                  `json:"permutations,omitempty"`
	Tail         string                `json:"tail,omitempty"`
	Alpha        *float64              `json:"alpha,omitempty"`
	MoransI      *battery.MoransIInput `json:"morans_i,omitempty"`
}

// BatteryJobRequest is one job of a battery request.
type BatteryJobRequest struct {
	Method string `json:"method" binding:"required"`
	MethodRequest
}

// BatteryRequest runs several jobs under one run ID. A given RunID replays
// an earlier run's permutations.
type BatteryRequest struct {
	RunID string              `json:"run_id,omitempty"`
	Jobs  []BatteryJobRequest `json:"jobs" binding:"required,min=1"`
}

// MethodResponse is the answer of a single-method endpoint. Fingerprints
// identify the input matrices in request order.
type MethodResponse struct {
	RunID        core.RunID         `json:"run_id"`
	Seed         int64              `json:"seed"`
	Fingerprints []core.Hash        `json:"matrix_fingerprints"`
	Result       ports.ResultRecord `json:"result"`
}

// BatteryResponse is the answer of the battery endpoint.
type BatteryResponse struct {
	RunID   core.RunID           `json:"run_id"`
	Seed    int64                `json:"seed"`
	Failed  int                  `json:"failed"`
	Results []ports.ResultRecord `json:"results"`
}

// RunResponse is a stored run.
type RunResponse struct {
	RunID   core.RunID           `json:"run_id"`
	Results []ports.ResultRecord `json:"results"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (p MatrixPayload) toDistanceMatrix() (*distmat.DistanceMatrix, error) {
	if strings.TrimSpace(p.Text) != "" {
		return qiime.ParseDistanceMatrix(strings.NewReader(p.Text))
	}
	return distmat.NewDistanceMatrix(p.SampleIDs, p.Data)
}

func (p *MetadataPayload) toMetadataMap() (*distmat.MetadataMap, error) {
	if p == nil {
		return nil, nil
	}
	if strings.TrimSpace(p.Text) != "" {
		return qiime.ParseMetadataMap(strings.NewReader(p.Text))
	}
	if len(p.Samples) == 0 {
		return nil, core.NewParameterError("metadata", "either samples or text is required")
	}
	return distmat.NewMetadataMap(p.Samples, nil), nil
}

// toJob converts a request into a battery job. index names jobs that carry
// no key of their own.
func (r MethodRequest) toJob(method battery.Method, index int) (battery.Job, error) {
	job := battery.Job{
		Key:          r.Key,
		Method:       method,
		Categories:   r.Categories,
		Permutations: r.Permutations,
		Alpha:        r.Alpha,
		MoransI:      r.MoransI,
	}
	if job.Key == "" {
		job.Key = fmt.Sprintf("%s-%d", method, index)
	}
	if r.Tail != "" {
		tail, err := permutation.ParseTail(r.Tail)
		if err != nil {
			return job, err
		}
		job.Tail = tail
	}

	for i, payload := range r.Matrices {
		dm, err := payload.toDistanceMatrix()
		if err != nil {
			return job, fmt.Errorf("matrix %d: %w", i, err)
		}
		job.Matrices = append(job.Matrices, dm)
	}

	md, err := r.Metadata.toMetadataMap()
	if err != nil {
		return job, err
	}
	job.Metadata = md
	return job, nil
}
