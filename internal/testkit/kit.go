// Package testkit holds fixtures and deterministic test doubles shared by
// the package tests.
package testkit

import (
	"strings"

	"microbiogeo/adapters/qiime"
	"microbiogeo/domain/distmat"
)

// OverviewDistanceMatrixText is the unweighted UniFrac distance matrix of the
// QIIME overview tutorial (9 samples).
const OverviewDistanceMatrixText = "\tPC.354\tPC.355\tPC.356\tPC.481\tPC.593\tPC.607\tPC.634\tPC.635\tPC.636\n" +
	"PC.354\t0.0\t0.595483768391\t0.618074717633\t0.582763100909\t0.566949022108\t0.714717232268\t0.772001731764\t0.690237118413\t0.740681707488\n" +
	"PC.355\t0.595483768391\t0.0\t0.581427669668\t0.613726772383\t0.65945132763\t0.745176523638\t0.733836123821\t0.720305073505\t0.680785600439\n" +
	"PC.356\t0.618074717633\t0.581427669668\t0.0\t0.672149021573\t0.699416863323\t0.71405573754\t0.759178215168\t0.689701276341\t0.725100672826\n" +
	"PC.481\t0.582763100909\t0.613726772383\t0.672149021573\t0.0\t0.64756120797\t0.666018240373\t0.66532968784\t0.650464714994\t0.632524644216\n" +
	"PC.593\t0.566949022108\t0.65945132763\t0.699416863323\t0.64756120797\t0.0\t0.703720200713\t0.748240937349\t0.73416971958\t0.727154987937\n" +
	"PC.607\t0.714717232268\t0.745176523638\t0.71405573754\t0.666018240373\t0.703720200713\t0.0\t0.707316869557\t0.636288883818\t0.699880573956\n" +
	"PC.634\t0.772001731764\t0.733836123821\t0.759178215168\t0.66532968784\t0.748240937349\t0.707316869557\t0.0\t0.565875193399\t0.560605525642\n" +
	"PC.635\t0.690237118413\t0.720305073505\t0.689701276341\t0.650464714994\t0.73416971958\t0.636288883818\t0.565875193399\t0.0\t0.575788039321\n" +
	"PC.636\t0.740681707488\t0.680785600439\t0.725100672826\t0.632524644216\t0.727154987937\t0.699880573956\t0.560605525642\t0.575788039321\t0.0\n"

// OverviewMappingText is the overview tutorial's metadata mapping file.
const OverviewMappingText = "#SampleID\tBarcodeSequence\tTreatment\tDOB\n" +
	"PC.354\tAGCACGAGCCTA\tControl\t20061218\n" +
	"PC.355\tAACTCGTCGATG\tControl\t20061218\n" +
	"PC.356\tACAGACCACTCA\tControl\t20061126\n" +
	"PC.481\tACCAGCGACTAG\tControl\t20070314\n" +
	"PC.593\tAGCAGCACTTGT\tControl\t20071210\n" +
	"PC.607\tAACTGTGCGTAC\tFast\t20071112\n" +
	"PC.634\tACAGAGTCGGCT\tFast\t20080116\n" +
	"PC.635\tACCGCAGAGTCA\tFast\t20080116\n" +
	"PC.636\tACGGTGAGTGTC\tFast\t20080116\n"

// OverviewDistanceMatrix parses OverviewDistanceMatrixText.
func OverviewDistanceMatrix() *distmat.DistanceMatrix {
	dm, err := qiime.ParseDistanceMatrix(strings.NewReader(OverviewDistanceMatrixText))
	if err != nil {
		panic(err)
	}
	return dm
}

// OverviewMetadataMap parses OverviewMappingText.
func OverviewMetadataMap() *distmat.MetadataMap {
	m, err := qiime.ParseMetadataMap(strings.NewReader(OverviewMappingText))
	if err != nil {
		panic(err)
	}
	return m
}

// MustDistanceMatrix builds a matrix or panics; for literal fixtures.
func MustDistanceMatrix(sampleIDs []string, data [][]float64) *distmat.DistanceMatrix {
	dm, err := distmat.NewDistanceMatrix(sampleIDs, data)
	if err != nil {
		panic(err)
	}
	return dm
}

// RollingPermuter is a non-random permuter: call k returns 0..n-1 rotated
// left by k positions, so call k maps position j to (j+k) mod n.
type RollingPermuter struct {
	calls int
}

// NewRollingPermuter returns a permuter whose first call rotates by one.
func NewRollingPermuter() *RollingPermuter {
	return &RollingPermuter{}
}

// Permutation implements ports.Permuter.
func (p *RollingPermuter) Permutation(n int) []int {
	p.calls++
	order := make([]int, n)
	if n == 0 {
		return order
	}
	shift := p.calls % n
	for j := range order {
		order[j] = (j + shift) % n
	}
	return order
}

// Calls reports how many permutations have been drawn.
func (p *RollingPermuter) Calls() int {
	return p.calls
}
