package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
	"golang.org/x/sync/errgroup"
)

// SourceFile is a local table path with an optional download URL.
type SourceFile struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// BuildOptions describe one interaction dataset build.
type BuildOptions struct {
	Compounds         SourceFile
	CompoundColumns   CompoundColumns
	Individual        SourceFile
	IndividualColumns IndividualColumns
	Pairwise          SourceFile
	PairwiseColumns   PairwiseColumns
	OutputPath        string
	ChunkSize         int
	Aggregate         AggregateOptions
	FetchTimeout      time.Duration
}

// Dataset is the result of a build: the emitted rows and every counter
// gathered on the way.
type Dataset struct {
	Rows       []entities.InteractionRow `json:"-"`
	Compounds  []entities.Compound       `json:"-"`
	Load       LoadStats                 `json:"compoundSource"`
	Individual IndexStats                `json:"individualSource"`
	Pairwise   IndexStats                `json:"pairwiseSource"`
	Stats      AggregateStats            `json:"aggregation"`
	MatchRate  float64                   `json:"matchRate"`
	OutputPath string                    `json:"outputPath,omitempty"`
	BuiltAt    time.Time                 `json:"builtAt"`
	Duration   time.Duration             `json:"duration"`
}

// Builder runs the whole pipeline: fetch, index, aggregate, write.
type Builder struct {
	opts    BuildOptions
	fetcher *Fetcher
}

func NewBuilder(opts BuildOptions) *Builder {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Builder{
		opts:    opts,
		fetcher: NewFetcher(opts.FetchTimeout),
	}
}

// Build produces a fresh Dataset. Any missing source aborts the build.
func (b *Builder) Build(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	if err := b.fetchSources(ctx); err != nil {
		return nil, err
	}

	index := NewSideEffectIndex()
	dataset := &Dataset{OutputPath: b.opts.OutputPath}

	// Each loader writes to its own map of the index.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		compounds, stats, err := LoadCompounds(gctx, b.opts.Compounds.Path, b.opts.CompoundColumns, b.opts.ChunkSize)
		if err != nil {
			return fmt.Errorf("compound source: %w", err)
		}
		dataset.Compounds, dataset.Load = compounds, stats
		return nil
	})
	g.Go(func() error {
		stats, err := BuildIndividualIndex(gctx, index, b.opts.Individual.Path, b.opts.IndividualColumns, b.opts.ChunkSize)
		if err != nil {
			return fmt.Errorf("individual side-effect source: %w", err)
		}
		dataset.Individual = stats
		return nil
	})
	g.Go(func() error {
		stats, err := BuildPairwiseIndex(gctx, index, b.opts.Pairwise.Path, b.opts.PairwiseColumns, b.opts.ChunkSize)
		if err != nil {
			return fmt.Errorf("pairwise side-effect source: %w", err)
		}
		dataset.Pairwise = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var writer *InteractionWriter
	if b.opts.OutputPath != "" {
		w, err := CreateInteractionWriter(b.opts.OutputPath)
		if err != nil {
			return nil, err
		}
		writer = w
	}

	stats, err := NewAggregator(index, b.opts.Aggregate).Aggregate(dataset.Compounds, func(row entities.InteractionRow) error {
		dataset.Rows = append(dataset.Rows, row)
		if writer != nil {
			return writer.Write(row)
		}
		return nil
	})
	if writer != nil {
		if err != nil {
			writer.Abort()
		} else {
			err = writer.Close()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write interaction dataset: %w", err)
	}

	dataset.Stats = stats
	dataset.MatchRate = stats.MatchRate()
	dataset.BuiltAt = time.Now()
	dataset.Duration = time.Since(start)

	logging.Info("Interaction dataset built",
		"mode", stats.Mode,
		"compounds", stats.Compounds,
		"pairs", stats.Pairs,
		"with_individual", stats.WithIndividual,
		"with_pairwise", stats.WithPairwise,
		"matched", stats.Matched,
		"unmatched", stats.Unmatched,
		"match_rate", fmt.Sprintf("%.1f%%", stats.MatchRate()*100),
		"duration", dataset.Duration.String())

	return dataset, nil
}

func (b *Builder) fetchSources(ctx context.Context) error {
	targets := make(map[string]string)
	for _, src := range []SourceFile{b.opts.Compounds, b.opts.Individual, b.opts.Pairwise} {
		if src.URL != "" {
			targets[src.Path] = src.URL
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return b.fetcher.FetchAll(ctx, targets)
}
