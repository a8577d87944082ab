package interactions

import (
	"context"
	"strings"

	"github.com/polyrisk/polyrisk-api/logging"
)

// ConvertStats summarizes a STITCH chemicals conversion.
type ConvertStats struct {
	RowsRead          int `json:"rowsRead"`
	Written           int `json:"written"`
	Normalized        int `json:"normalized"`
	MalformedRows     int `json:"malformedRows"`
	RemainingVariants int `json:"remainingVariants"`
}

// ConvertStitchChemicals streams a STITCH chemicals table (optionally
// gzipped TSV) into CSV, rewriting identifiers of idColumn to canonical form.
// Rows without an identifier or name are dropped.
func ConvertStitchChemicals(ctx context.Context, src, dst, idColumn, nameColumn string, chunkSize int) (ConvertStats, error) {
	var stats ConvertStats

	tr, err := OpenTable(src)
	if err != nil {
		return stats, err
	}
	defer tr.Close()

	if err := tr.RequireColumns(idColumn, nameColumn); err != nil {
		return stats, err
	}

	header := tr.Header()
	idIndex := indexOf(header, idColumn)

	out, err := createCSV(dst, header)
	if err != nil {
		return stats, err
	}

	err = tr.ReadChunks(chunkSize, func(chunk []Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range chunk {
			stats.RowsRead++

			if isNull(row.Get(idColumn)) || isNull(row.Get(nameColumn)) {
				stats.MalformedRows++
				continue
			}

			record := make([]string, len(header))
			copy(record, row.Fields())

			raw := strings.TrimSpace(record[idIndex])
			id := NormalizeID(raw)
			if id != raw {
				stats.Normalized++
			}
			if strings.HasPrefix(id, stitchVariantPrefix) {
				stats.RemainingVariants++
			}
			record[idIndex] = id

			if err := out.write(record); err != nil {
				return err
			}
			stats.Written++
		}
		return nil
	})
	if err != nil {
		out.Abort()
		return stats, err
	}

	if err := out.Close(); err != nil {
		return stats, err
	}

	logging.Info("STITCH chemicals converted",
		"source", src,
		"destination", dst,
		"rows", stats.RowsRead,
		"written", stats.Written,
		"normalized", stats.Normalized,
		"malformed", stats.MalformedRows)

	return stats, nil
}

func indexOf(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}
