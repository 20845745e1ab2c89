package qiime

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"microbiogeo/domain/distmat"
)

// FormatDistanceMatrix writes dm in the layout ParseDistanceMatrix reads.
func FormatDistanceMatrix(w io.Writer, dm *distmat.DistanceMatrix) error {
	bw := bufio.NewWriter(w)
	ids := dm.SampleIDs()

	bw.WriteString("\t" + strings.Join(ids, "\t") + "\n")
	for i, id := range ids {
		bw.WriteString(id)
		for j := range ids {
			bw.WriteByte('\t')
			bw.WriteString(strconv.FormatFloat(dm.At(i, j), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FormatMetadataMap writes md as a mapping file. Categories shared by every
// sample become columns in sorted order; samples follow in sorted order.
func FormatMetadataMap(w io.Writer, md *distmat.MetadataMap) error {
	bw := bufio.NewWriter(w)
	categories := md.Categories()

	bw.WriteString("#SampleID")
	for _, c := range categories {
		bw.WriteString("\t" + c)
	}
	bw.WriteByte('\n')
	for _, comment := range md.Comments() {
		bw.WriteString("#" + comment + "\n")
	}

	for _, id := range md.SampleIDs() {
		bw.WriteString(id)
		for _, c := range categories {
			v, err := md.CategoryValue(id, c)
			if err != nil {
				return err
			}
			bw.WriteString("\t" + v)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
