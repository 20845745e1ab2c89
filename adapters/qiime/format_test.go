package qiime_test

import (
	"bytes"
	"strings"
	"testing"

	"microbiogeo/adapters/qiime"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDistanceMatrix_Reparses(t *testing.T) {
	dm := testkit.OverviewDistanceMatrix()

	var buf bytes.Buffer
	require.NoError(t, qiime.FormatDistanceMatrix(&buf, dm))

	back, err := qiime.ParseDistanceMatrix(&buf)
	require.NoError(t, err)
	assert.Equal(t, dm.SampleIDs(), back.SampleIDs())
	assert.Equal(t, dm.Data(), back.Data())
}

func TestFormatDistanceMatrix_Layout(t *testing.T) {
	dm := testkit.MustDistanceMatrix([]string{"a", "b"}, [][]float64{{0, 0.25}, {0.25, 0}})

	var buf bytes.Buffer
	require.NoError(t, qiime.FormatDistanceMatrix(&buf, dm))
	assert.Equal(t, "\ta\tb\na\t0\t0.25\nb\t0.25\t0\n", buf.String())
}

func TestFormatMetadataMap(t *testing.T) {
	md := distmat.NewMetadataMap(map[string]map[string]string{
		"s2": {"Zone": "high", "pH": "7.5"},
		"s1": {"Zone": "low", "pH": "5.0", "Extra": "only here"},
	}, []string{"synthetic"})

	var buf bytes.Buffer
	require.NoError(t, qiime.FormatMetadataMap(&buf, md))
	assert.Equal(t, "#SampleID\tZone\tpH\n#synthetic\ns1\tlow\t5.0\ns2\thigh\t7.5\n", buf.String())

	back, err := qiime.ParseMetadataMap(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []string{"synthetic"}, back.Comments())
	v, err := back.CategoryValue("s2", "pH")
	require.NoError(t, err)
	assert.Equal(t, "7.5", v)
}
