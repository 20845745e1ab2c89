// Package battery runs many independent method invocations concurrently,
// each with its own deterministic permutation stream.
package battery

import (
	"fmt"

	"microbiogeo/adapters/stats/methods"
	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/permutation"
	"microbiogeo/ports"
)

// Method names a statistical method a job can run.
type Method string

const (
	MethodMantel        Method = "mantel"
	MethodPartialMantel Method = "partial_mantel"
	MethodCorrelogram   Method = "correlogram"
	MethodAnosim        Method = "anosim"
	MethodPermanova     Method = "permanova"
	MethodBioEnv        Method = "bioenv"
	MethodMoransI       Method = "morans_i"
)

// ParseMethod accepts the method names above; dashes are read as underscores.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if m == "partial-mantel" {
		m = MethodPartialMantel
	}
	if m == "morans-i" {
		m = MethodMoransI
	}
	if _, ok := methodCost[m]; !ok {
		return "", core.NewParameterError("method", fmt.Sprintf("unknown method %q", s))
	}
	return m, nil
}

// methodCost weights how much of the runner's capacity a job holds.
var methodCost = map[Method]int64{
	MethodMantel:        1,
	MethodPartialMantel: 1,
	MethodAnosim:        1,
	MethodPermanova:     1,
	MethodMoransI:       1,
	MethodBioEnv:        2,
	MethodCorrelogram:   3,
}

// MoransIInput is a precomputed Moran's I. A nil PValue derives it from the
// normal approximation.
type MoransIInput struct {
	Observed float64  `json:"observed"`
	Expected float64  `json:"expected"`
	StdDev   float64  `json:"sd"`
	PValue   *float64 `json:"p_value"`
}

// Job is one method invocation. Key identifies the job within a run and
// feeds the permutation stream, so it should be unique per run.
type Job struct {
	Key          string
	Method       Method
	Matrices     []*distmat.DistanceMatrix
	Metadata     *distmat.MetadataMap
	Categories   []string
	Permutations *int
	Tail         permutation.Tail
	Alpha        *float64
	MoransI      *MoransIInput
}

// Ceilings a Runner applies when no Defaults are given.
const (
	DefaultMaxPermutations     = 100000
	DefaultMaxBioEnvCategories = 12
)

// Defaults are applied to jobs that leave a parameter unset. The Max fields
// bound what a job may request; zero leaves that bound off.
type Defaults struct {
	Permutations        int
	Alpha               float64
	MaxPermutations     int
	MaxBioEnvCategories int
}

// execute builds the method for job, applies its parameters and runs it.
func execute(job Job, defaults Defaults, permuter ports.Permuter) (methods.Result, error) {
	permutations := defaults.Permutations
	if job.Permutations != nil {
		permutations = *job.Permutations
	}
	if defaults.MaxPermutations > 0 && permutations > defaults.MaxPermutations {
		return nil, core.NewParameterError("permutations", fmt.Sprintf("at most %d permutations are allowed, got %d", defaults.MaxPermutations, permutations))
	}

	switch job.Method {
	case MethodMantel:
		if err := requireMatrices(job, 2); err != nil {
			return nil, err
		}
		m, err := methods.NewMantel(job.Matrices[0], job.Matrices[1])
		if err != nil {
			return nil, err
		}
		if job.Tail != "" {
			if err := m.SetTail(job.Tail); err != nil {
				return nil, err
			}
		}
		if err := configure(m, permutations, permuter); err != nil {
			return nil, err
		}
		return m.Run()

	case MethodPartialMantel:
		if err := requireMatrices(job, 3); err != nil {
			return nil, err
		}
		pm, err := methods.NewPartialMantel(job.Matrices[0], job.Matrices[1], job.Matrices[2])
		if err != nil {
			return nil, err
		}
		if err := configure(pm, permutations, permuter); err != nil {
			return nil, err
		}
		return pm.Run()

	case MethodCorrelogram:
		if err := requireMatrices(job, 2); err != nil {
			return nil, err
		}
		mc, err := methods.NewMantelCorrelogram(job.Matrices[0], job.Matrices[1])
		if err != nil {
			return nil, err
		}
		alpha := defaults.Alpha
		if job.Alpha != nil {
			alpha = *job.Alpha
		}
		if err := mc.SetAlpha(alpha); err != nil {
			return nil, err
		}
		if err := configure(mc, permutations, permuter); err != nil {
			return nil, err
		}
		return mc.Run()

	case MethodAnosim, MethodPermanova:
		if err := requireMatrices(job, 1); err != nil {
			return nil, err
		}
		if len(job.Categories) != 1 {
			return nil, core.NewParameterError("categories", fmt.Sprintf("%s takes exactly one category, got %d", job.Method, len(job.Categories)))
		}
		if job.Method == MethodAnosim {
			a, err := methods.NewAnosim(job.Matrices[0], job.Metadata, job.Categories[0])
			if err != nil {
				return nil, err
			}
			if err := configure(a, permutations, permuter); err != nil {
				return nil, err
			}
			return a.Run()
		}
		p, err := methods.NewPermanova(job.Matrices[0], job.Metadata, job.Categories[0])
		if err != nil {
			return nil, err
		}
		if err := configure(p, permutations, permuter); err != nil {
			return nil, err
		}
		return p.Run()

	case MethodBioEnv:
		if err := requireMatrices(job, 1); err != nil {
			return nil, err
		}
		// BioEnv tries every subset of the categories.
		if defaults.MaxBioEnvCategories > 0 && len(job.Categories) > defaults.MaxBioEnvCategories {
			return nil, core.NewParameterError("categories", fmt.Sprintf("bioenv takes at most %d categories, got %d", defaults.MaxBioEnvCategories, len(job.Categories)))
		}
		b, err := methods.NewBioEnv(job.Matrices[0], job.Metadata, job.Categories)
		if err != nil {
			return nil, err
		}
		return b.Run()

	case MethodMoransI:
		in := job.MoransI
		if in == nil {
			return nil, core.NewParameterError("morans_i", "observed, expected and sd are required")
		}
		if in.PValue == nil {
			return methods.MoransIFromMoments(in.Observed, in.Expected, in.StdDev)
		}
		return methods.NewMoransIResult(in.Observed, in.Expected, in.StdDev, *in.PValue)
	}
	return nil, core.NewParameterError("method", fmt.Sprintf("unknown method %q", job.Method))
}

// permutable is satisfied by every permutation-based method.
type permutable interface {
	SetPermutations(n int) error
	SetPermuter(p ports.Permuter) error
}

func configure(m permutable, permutations int, permuter ports.Permuter) error {
	if err := m.SetPermutations(permutations); err != nil {
		return err
	}
	return m.SetPermuter(permuter)
}

func requireMatrices(job Job, n int) error {
	if len(job.Matrices) != n {
		return core.NewParameterError("distance_matrices", fmt.Sprintf("%s takes %d matrices, got %d", job.Method, n, len(job.Matrices)))
	}
	return nil
}
