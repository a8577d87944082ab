package interactions

import (
	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

// Mode selects how compound pairs are enumerated.
type Mode string

const (
	// ModeAllPairs sweeps every unordered pair of the first SubsetSize
	// compounds. Cost grows with the square of the subset.
	ModeAllPairs Mode = "all_pairs"
	// ModeCoOccurring only visits pairs present in the pairwise index whose
	// two compounds belong to the universe.
	ModeCoOccurring Mode = "co_occurring"
)

// DefaultSubsetSize bounds the all-pairs sweep when nothing else is configured.
const DefaultSubsetSize = 100

type AggregateOptions struct {
	// SubsetSize caps the compounds used by the all-pairs sweep. Zero or less
	// means the whole universe.
	SubsetSize int  `yaml:"subset_size"`
	Mode       Mode `yaml:"mode"`
}

// AggregateStats are the match counters of one aggregation run.
type AggregateStats struct {
	Mode           Mode `json:"mode"`
	Compounds      int  `json:"compounds"`
	Pairs          int  `json:"pairs"`
	WithIndividual int  `json:"withIndividual"`
	WithPairwise   int  `json:"withPairwise"`
	Matched        int  `json:"matched"`
	Unmatched      int  `json:"unmatched"`
}

// MatchRate is the share of pairs that received at least one side effect.
func (s AggregateStats) MatchRate() float64 {
	if s.Pairs == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Pairs)
}

func (s *AggregateStats) record(row entities.InteractionRow) {
	s.Pairs++
	for _, tag := range row.Tags {
		switch tag {
		case entities.TagIndividual:
			s.WithIndividual++
		case entities.TagPairwise:
			s.WithPairwise++
		}
	}
	if row.Matched() {
		s.Matched++
	} else {
		s.Unmatched++
	}
}

// Aggregator joins compound pairs against a SideEffectIndex.
type Aggregator struct {
	index *SideEffectIndex
	opts  AggregateOptions
}

func NewAggregator(index *SideEffectIndex, opts AggregateOptions) *Aggregator {
	if opts.Mode == "" {
		opts.Mode = ModeAllPairs
	}
	return &Aggregator{index: index, opts: opts}
}

// resolve maps a compound to its canonical identifier, if it has one that
// follows the STITCH convention.
func resolve(c entities.Compound) (string, bool) {
	id, ok := CanonicalID(c.RawID)
	if !ok || !IsStitchID(id) {
		return "", false
	}
	return id, true
}

// Pair builds the annotated row for two compounds. Unresolvable compounds
// still produce a row, with empty tags and effects.
func (a *Aggregator) Pair(c1, c2 entities.Compound) entities.InteractionRow {
	row := entities.InteractionRow{
		Drug1:       c1.Name,
		Drug2:       c2.Name,
		Tags:        []string{},
		SideEffects: []string{},
	}

	effects := make(EffectSet)
	id1, ok1 := resolve(c1)
	id2, ok2 := resolve(c2)

	individual := false
	for _, r := range []struct {
		id string
		ok bool
	}{{id1, ok1}, {id2, ok2}} {
		if !r.ok {
			continue
		}
		if set, found := a.index.Individual[r.id]; found && len(set) > 0 {
			for label := range set {
				effects.add(label)
			}
			individual = true
		}
	}
	if individual {
		row.Tags = append(row.Tags, entities.TagIndividual)
	}

	if ok1 && ok2 {
		if set, found := a.index.Pairwise[NewPairKey(id1, id2)]; found && len(set) > 0 {
			for label := range set {
				effects.add(label)
			}
			row.Tags = append(row.Tags, entities.TagPairwise)
		}
	}

	row.SideEffects = effects.Sorted()
	return row
}

// Aggregate enumerates pairs according to the options and hands each row to
// emit in a deterministic order. It stops at the first emit error.
func (a *Aggregator) Aggregate(compounds []entities.Compound, emit func(entities.InteractionRow) error) (AggregateStats, error) {
	stats := AggregateStats{Mode: a.opts.Mode}

	if a.opts.Mode == ModeCoOccurring {
		pairs := a.coOccurringPairs(compounds)
		if len(pairs) > 0 {
			stats.Compounds = len(compounds)
			for _, p := range pairs {
				row := a.Pair(p[0], p[1])
				stats.record(row)
				if err := emit(row); err != nil {
					return stats, err
				}
			}
			return stats, nil
		}
		logging.Info("No co-occurring pairs in the compound universe, falling back to all-pairs sweep",
			"subset_size", a.opts.SubsetSize)
		stats.Mode = ModeAllPairs
	}

	subset := compounds
	if a.opts.SubsetSize > 0 && a.opts.SubsetSize < len(subset) {
		subset = subset[:a.opts.SubsetSize]
	}
	stats.Compounds = len(subset)

	n := len(subset)
	if expected := n * (n - 1) / 2; expected > 1_000_000 {
		logging.Warn("All-pairs sweep is large, consider a subset size or co_occurring mode",
			"compounds", n,
			"pairs", expected)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			row := a.Pair(subset[i], subset[j])
			stats.record(row)
			if err := emit(row); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

// AggregateAll collects every emitted row.
func (a *Aggregator) AggregateAll(compounds []entities.Compound) ([]entities.InteractionRow, AggregateStats) {
	var rows []entities.InteractionRow
	stats, _ := a.Aggregate(compounds, func(row entities.InteractionRow) error {
		rows = append(rows, row)
		return nil
	})
	return rows, stats
}

func (a *Aggregator) coOccurringPairs(compounds []entities.Compound) [][2]entities.Compound {
	byID := make(map[string]entities.Compound, len(compounds))
	for _, c := range compounds {
		if id, ok := resolve(c); ok {
			if _, exists := byID[id]; !exists {
				byID[id] = c
			}
		}
	}

	var pairs [][2]entities.Compound
	for _, key := range a.index.PairKeys() {
		c1, ok1 := byID[key.First]
		c2, ok2 := byID[key.Second]
		if ok1 && ok2 {
			pairs = append(pairs, [2]entities.Compound{c1, c2})
		}
	}
	return pairs
}
