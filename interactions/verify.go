package interactions

import (
	"strings"
)

// TwosidesReport describes the identifier format found in a TWOSIDES sample.
type TwosidesReport struct {
	SampledRows  int `json:"sampledRows"`
	CanonicalIDs int `json:"canonicalIds"`
	VariantIDs   int `json:"variantIds"`
	OtherIDs     int `json:"otherIds"`
	NullIDs      int `json:"nullIds"`
}

// Valid reports whether every non-null sampled identifier already uses the
// canonical CID form.
func (r TwosidesReport) Valid() bool {
	return r.SampledRows > 0 && r.VariantIDs == 0 && r.OtherIDs == 0
}

// VerifyTwosides inspects the identifier columns of the first sample rows.
func VerifyTwosides(path string, cols PairwiseColumns, sample int) (TwosidesReport, error) {
	var report TwosidesReport
	if sample <= 0 {
		sample = 1000
	}

	classify := func(raw string) {
		raw = strings.TrimSpace(raw)
		switch {
		case isNull(raw):
			report.NullIDs++
		case strings.HasPrefix(raw, stitchVariantPrefix):
			report.VariantIDs++
		case IsStitchID(raw):
			report.CanonicalIDs++
		default:
			report.OtherIDs++
		}
	}

	_, err := readTable(path, sample, []string{cols.First, cols.Second}, func(chunk []Row) error {
		for _, row := range chunk {
			if report.SampledRows >= sample {
				return errStopReading
			}
			report.SampledRows++
			classify(row.Get(cols.First))
			classify(row.Get(cols.Second))
		}
		if report.SampledRows >= sample {
			return errStopReading
		}
		return nil
	})

	return report, err
}
