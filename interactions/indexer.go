package interactions

import (
	"context"
	"slices"
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

// IndividualColumns names the columns of the single-compound side-effect source.
type IndividualColumns struct {
	ID    string `yaml:"id_column"`
	Label string `yaml:"label_column"`
}

// PairwiseColumns names the columns of the pair-labeled side-effect source.
type PairwiseColumns struct {
	First  string `yaml:"first_column"`
	Second string `yaml:"second_column"`
	Label  string `yaml:"label_column"`
}

// EffectSet is a set of side-effect labels.
type EffectSet map[string]struct{}

func (s EffectSet) add(label string) {
	s[label] = struct{}{}
}

// Sorted returns the labels in lexical order.
func (s EffectSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for label := range s {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// IndexStats counts what one source contributed to an index.
type IndexStats struct {
	RowsRead          int `json:"rowsRead"`
	Indexed           int `json:"indexed"`
	SkippedNullFields int `json:"skippedNullFields"`
	DistinctKeys      int `json:"distinctKeys"`
}

// SideEffectIndex holds intrinsic per-compound effects and interaction-induced
// per-pair effects. It is read-only once built and safe for concurrent readers.
type SideEffectIndex struct {
	Individual map[string]EffectSet
	Pairwise   map[entities.PairKey]EffectSet
}

func NewSideEffectIndex() *SideEffectIndex {
	return &SideEffectIndex{
		Individual: make(map[string]EffectSet),
		Pairwise:   make(map[entities.PairKey]EffectSet),
	}
}

// AddIndividual records one compound label. It returns false and records
// nothing when the identifier or label is null.
func (ix *SideEffectIndex) AddIndividual(rawID, label string) bool {
	id, ok := CanonicalID(rawID)
	label = strings.TrimSpace(label)
	if !ok || isNull(label) {
		return false
	}

	set, exists := ix.Individual[id]
	if !exists {
		set = make(EffectSet)
		ix.Individual[id] = set
	}
	set.add(label)
	return true
}

// AddPairwise records one pair label under the canonical pair key.
func (ix *SideEffectIndex) AddPairwise(rawFirst, rawSecond, label string) bool {
	first, ok1 := CanonicalID(rawFirst)
	second, ok2 := CanonicalID(rawSecond)
	label = strings.TrimSpace(label)
	if !ok1 || !ok2 || isNull(label) {
		return false
	}

	key := NewPairKey(first, second)
	set, exists := ix.Pairwise[key]
	if !exists {
		set = make(EffectSet)
		ix.Pairwise[key] = set
	}
	set.add(label)
	return true
}

// PairKeys returns the pairwise keys in sorted order.
func (ix *SideEffectIndex) PairKeys() []entities.PairKey {
	keys := make([]entities.PairKey, 0, len(ix.Pairwise))
	for k := range ix.Pairwise {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b entities.PairKey) int {
		if c := strings.Compare(a.First, b.First); c != 0 {
			return c
		}
		return strings.Compare(a.Second, b.Second)
	})
	return keys
}

// BuildIndividualIndex streams the single-compound source into ix.Individual.
func BuildIndividualIndex(ctx context.Context, ix *SideEffectIndex, path string, cols IndividualColumns, chunkSize int) (IndexStats, error) {
	var stats IndexStats

	tableStats, err := readTable(path, chunkSize, []string{cols.ID, cols.Label}, func(chunk []Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range chunk {
			stats.RowsRead++
			if ix.AddIndividual(row.Get(cols.ID), row.Get(cols.Label)) {
				stats.Indexed++
			} else {
				stats.SkippedNullFields++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.DistinctKeys = len(ix.Individual)
	logIndexStats("Individual side-effect source statistics", path, tableStats, stats)
	return stats, nil
}

// BuildPairwiseIndex streams the pair-labeled source into ix.Pairwise.
func BuildPairwiseIndex(ctx context.Context, ix *SideEffectIndex, path string, cols PairwiseColumns, chunkSize int) (IndexStats, error) {
	var stats IndexStats

	tableStats, err := readTable(path, chunkSize, []string{cols.First, cols.Second, cols.Label}, func(chunk []Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range chunk {
			stats.RowsRead++
			if ix.AddPairwise(row.Get(cols.First), row.Get(cols.Second), row.Get(cols.Label)) {
				stats.Indexed++
			} else {
				stats.SkippedNullFields++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.DistinctKeys = len(ix.Pairwise)
	logIndexStats("Pairwise side-effect source statistics", path, tableStats, stats)
	return stats, nil
}

func logIndexStats(msg, path string, tableStats TableStats, stats IndexStats) {
	logging.Info(msg,
		"path", path,
		"total_lines", tableStats.Lines,
		"empty_lines", tableStats.EmptyLines,
		"malformed_lines", tableStats.MalformedLines,
		"null_fields", stats.SkippedNullFields,
		"records_indexed", stats.Indexed,
		"distinct_keys", stats.DistinctKeys)

	// In-memory indexes only pay off while keys are much rarer than rows.
	if stats.RowsRead > 0 && stats.DistinctKeys*2 > stats.RowsRead {
		logging.Warn("Side-effect index key cardinality is close to row count",
			"path", path,
			"distinct_keys", stats.DistinctKeys,
			"rows", stats.RowsRead)
	}
}
