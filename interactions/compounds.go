package interactions

import (
	"context"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

// CompoundColumns names the header columns of the compound source.
type CompoundColumns struct {
	ID   string `yaml:"id_column"`
	Name string `yaml:"name_column"`
}

// LoadStats summarizes a compound source read.
type LoadStats struct {
	RowsRead          int `json:"rowsRead"`
	Loaded            int `json:"loaded"`
	SkippedNullFields int `json:"skippedNullFields"`
	Duplicates        int `json:"duplicates"`
}

// LoadCompounds reads the compound universe in file order. Rows with a null
// identifier or name are skipped, and a repeated identifier keeps its first name.
func LoadCompounds(ctx context.Context, path string, cols CompoundColumns, chunkSize int) ([]entities.Compound, LoadStats, error) {
	var compounds []entities.Compound
	var stats LoadStats
	seen := make(map[string]struct{})

	tableStats, err := readTable(path, chunkSize, []string{cols.ID, cols.Name}, func(chunk []Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range chunk {
			stats.RowsRead++

			id, ok := CanonicalID(row.Get(cols.ID))
			name := row.Get(cols.Name)
			if !ok || isNull(name) {
				stats.SkippedNullFields++
				continue
			}

			if _, dup := seen[id]; dup {
				stats.Duplicates++
				continue
			}
			seen[id] = struct{}{}

			compounds = append(compounds, entities.Compound{RawID: row.Get(cols.ID), Name: name})
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	stats.Loaded = len(compounds)
	logging.Info("Compound source statistics",
		"path", path,
		"total_lines", tableStats.Lines,
		"empty_lines", tableStats.EmptyLines,
		"malformed_lines", tableStats.MalformedLines,
		"null_fields", stats.SkippedNullFields,
		"duplicates", stats.Duplicates,
		"records_parsed", stats.Loaded)

	return compounds, stats, nil
}

// NameIndex maps canonical identifiers to display names.
func NameIndex(compounds []entities.Compound) map[string]string {
	names := make(map[string]string, len(compounds))
	for _, c := range compounds {
		if id, ok := CanonicalID(c.RawID); ok {
			if _, exists := names[id]; !exists {
				names[id] = c.Name
			}
		}
	}
	return names
}
