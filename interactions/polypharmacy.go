package interactions

import (
	"context"
	"fmt"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

var polypharmacyHeader = []string{"drug1", "drug2", "Polypharmacy Side Effect", "Side Effect Name"}

// PolypharmacyStats are the counters of a polypharmacy dataset run.
type PolypharmacyStats struct {
	RowsRead          int `json:"rowsRead"`
	Records           int `json:"records"`
	Matched           int `json:"matched"`
	SkippedNullFields int `json:"skippedNullFields"`
}

// MatchRate is the share of records where at least one drug name is known.
func (s PolypharmacyStats) MatchRate() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Records)
}

// UnknownDrugName is the placeholder for an identifier missing from the names.
func UnknownDrugName(id string) string {
	return "Unknown_Drug_" + id
}

// PolypharmacyRecordFor names both sides of a TWOSIDES row. The record is
// matched unless neither identifier has a known name.
func PolypharmacyRecordFor(names map[string]string, id1, id2, sideEffect string) (entities.PolypharmacyRecord, bool) {
	name1, known1 := names[id1]
	if !known1 {
		name1 = UnknownDrugName(id1)
	}
	name2, known2 := names[id2]
	if !known2 {
		name2 = UnknownDrugName(id2)
	}

	return entities.PolypharmacyRecord{
		Drug1:          name1,
		Drug2:          name2,
		SideEffect:     sideEffect,
		SideEffectName: fmt.Sprintf("%s and %s: %s", name1, name2, sideEffect),
	}, known1 || known2
}

// BuildPolypharmacyDataset writes one named record per valid TWOSIDES row.
func BuildPolypharmacyDataset(ctx context.Context, names map[string]string, twosidesPath string, cols PairwiseColumns, outPath string, chunkSize int) (PolypharmacyStats, error) {
	var stats PolypharmacyStats

	tr, err := OpenTable(twosidesPath)
	if err != nil {
		return stats, err
	}
	defer tr.Close()

	if err := tr.RequireColumns(cols.First, cols.Second, cols.Label); err != nil {
		return stats, err
	}

	out, err := createCSV(outPath, polypharmacyHeader)
	if err != nil {
		return stats, err
	}

	err = tr.ReadChunks(chunkSize, func(chunk []Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range chunk {
			stats.RowsRead++

			id1, ok1 := CanonicalID(row.Get(cols.First))
			id2, ok2 := CanonicalID(row.Get(cols.Second))
			sideEffect := row.Get(cols.Label)
			if !ok1 || !ok2 || isNull(sideEffect) {
				stats.SkippedNullFields++
				continue
			}

			record, matched := PolypharmacyRecordFor(names, id1, id2, sideEffect)
			if matched {
				stats.Matched++
			}
			stats.Records++

			if err := out.write([]string{record.Drug1, record.Drug2, record.SideEffect, record.SideEffectName}); err != nil {
				return err
			}
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

	logging.Info("Polypharmacy dataset written",
		"path", outPath,
		"total_lines", tr.Stats().Lines,
		"null_fields", stats.SkippedNullFields,
		"records", stats.Records,
		"matched", stats.Matched,
		"match_rate", stats.MatchRate())

	return stats, nil
}
