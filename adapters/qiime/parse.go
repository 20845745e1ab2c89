// Package qiime parses the QIIME text formats for distance matrices and
// metadata mapping files into domain objects.
package qiime

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
)

// ParseDistanceMatrix reads a tab-separated distance matrix: a header line
// of sample IDs (first cell empty) followed by one labeled row per sample,
// in header order. Blank lines are ignored.
func ParseDistanceMatrix(r io.Reader) (*distmat.DistanceMatrix, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, core.NewConstructionError("distance matrix input is empty")
	}

	header := splitFields(lines[0])
	if len(header) < 2 {
		return nil, core.NewConstructionError("distance matrix header has no sample IDs")
	}
	sampleIDs := header[1:]

	rows := lines[1:]
	if len(rows) != len(sampleIDs) {
		return nil, core.NewConstructionError("header lists %d samples but %d rows follow", len(sampleIDs), len(rows))
	}

	data := make([][]float64, len(rows))
	for i, line := range rows {
		fields := splitFields(line)
		if len(fields) != len(sampleIDs)+1 {
			return nil, core.NewConstructionError("row %d has %d values, expected %d", i+1, len(fields)-1, len(sampleIDs))
		}
		if fields[0] != sampleIDs[i] {
			return nil, core.NewConstructionError("row %d is labeled %q but column %d is %q", i+1, fields[0], i+1, sampleIDs[i])
		}
		data[i] = make([]float64, len(sampleIDs))
		for j, raw := range fields[1:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, core.NewConstructionError("row %q column %q: %v", fields[0], sampleIDs[j], err)
			}
			data[i][j] = v
		}
	}

	return distmat.NewDistanceMatrix(sampleIDs, data)
}

// ParseMetadataMap reads a mapping file. The header starts with #SampleID;
// any other line starting with # is a comment.
func ParseMetadataMap(r io.Reader) (*distmat.MetadataMap, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var header []string
	var comments []string
	samples := make(map[string]map[string]string)

	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			if header == nil && strings.HasPrefix(line, "#SampleID") {
				header = splitFields(line)
				continue
			}
			comments = append(comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}
		if header == nil {
			return nil, core.NewConstructionError("mapping data precedes the #SampleID header")
		}

		fields := splitFields(line)
		if len(fields) != len(header) {
			return nil, core.NewConstructionError("sample %q has %d fields, header has %d", fields[0], len(fields), len(header))
		}
		id := fields[0]
		if _, dup := samples[id]; dup {
			return nil, core.NewConstructionError("duplicate sample ID %q", id)
		}
		categories := make(map[string]string, len(header)-1)
		for j, name := range header[1:] {
			categories[name] = fields[j+1]
		}
		samples[id] = categories
	}

	if header == nil {
		return nil, core.NewConstructionError("mapping file has no #SampleID header")
	}
	return distmat.NewMetadataMap(samples, comments), nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

// splitFields splits on tabs and trims surrounding spaces of each cell.
func splitFields(line string) []string {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
