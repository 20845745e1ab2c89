package distmat

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"microbiogeo/domain/core"
)

// MetadataMap maps sample ID to category name to category value.
type MetadataMap struct {
	samples  map[string]map[string]string
	comments []string
}

// NewMetadataMap copies the parsed sample metadata and comment lines.
func NewMetadataMap(samples map[string]map[string]string, comments []string) *MetadataMap {
	copied := make(map[string]map[string]string, len(samples))
	for id, categories := range samples {
		inner := make(map[string]string, len(categories))
		for k, v := range categories {
			inner[k] = v
		}
		copied[id] = inner
	}
	return &MetadataMap{
		samples:  copied,
		comments: append([]string(nil), comments...),
	}
}

// Comments returns the free-text comment lines of the source.
func (m *MetadataMap) Comments() []string {
	return append([]string(nil), m.comments...)
}

// SampleIDs returns the sample IDs in sorted order.
func (m *MetadataMap) SampleIDs() []string {
	ids := make([]string, 0, len(m.samples))
	for id := range m.samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasSample reports whether id is a key of the map.
func (m *MetadataMap) HasSample(id string) bool {
	_, ok := m.samples[id]
	return ok
}

// SampleMetadata returns a copy of the category values of one sample.
func (m *MetadataMap) SampleMetadata(id string) (map[string]string, error) {
	categories, ok := m.samples[id]
	if !ok {
		return nil, core.NewCompatibilityError("sample %q is not in the metadata map", id)
	}
	out := make(map[string]string, len(categories))
	for k, v := range categories {
		out[k] = v
	}
	return out, nil
}

// CategoryValue returns the value of category for sample id.
func (m *MetadataMap) CategoryValue(id, category string) (string, error) {
	categories, ok := m.samples[id]
	if !ok {
		return "", core.NewCompatibilityError("sample %q is not in the metadata map", id)
	}
	value, ok := categories[category]
	if !ok {
		return "", core.NewParameterError("category", fmt.Sprintf("sample %q has no category %q", id, category))
	}
	return value, nil
}

// HasCategory reports whether every sample carries category. An empty map
// has no categories.
func (m *MetadataMap) HasCategory(category string) bool {
	if len(m.samples) == 0 {
		return false
	}
	for _, categories := range m.samples {
		if _, ok := categories[category]; !ok {
			return false
		}
	}
	return true
}

// Categories returns the category names shared by every sample, sorted.
func (m *MetadataMap) Categories() []string {
	var shared []string
	first := true
	for _, categories := range m.samples {
		if first {
			for k := range categories {
				shared = append(shared, k)
			}
			first = false
			continue
		}
		kept := shared[:0]
		for _, k := range shared {
			if _, ok := categories[k]; ok {
				kept = append(kept, k)
			}
		}
		shared = kept
	}
	sort.Strings(shared)
	return shared
}

// CategoryValues returns category's value for each of ids, in order.
func (m *MetadataMap) CategoryValues(ids []string, category string) ([]string, error) {
	values := make([]string, len(ids))
	for i, id := range ids {
		v, err := m.CategoryValue(id, category)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// NumericCategoryValues is CategoryValues parsed as float64.
func (m *MetadataMap) NumericCategoryValues(ids []string, category string) ([]float64, error) {
	raw, err := m.CategoryValues(ids, category)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewParameterError("category", fmt.Sprintf("value %q of %q for sample %q is not a finite number", s, category, ids[i]))
		}
		values[i] = v
	}
	return values, nil
}
