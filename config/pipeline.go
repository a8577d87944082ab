package config

import (
	"fmt"
	"os"
	"time"

	"github.com/polyrisk/polyrisk-api/interactions"
	"gopkg.in/yaml.v3"
)

// Default column names of the STITCH chemicals, SIDER and TWOSIDES files.
const (
	DefaultCompoundIDColumn   = "chemical"
	DefaultCompoundNameColumn = "name"
	DefaultIndividualID       = "STITCH_compound_ID_flat"
	DefaultIndividualLabel    = "MedDRA_term"
	DefaultPairFirst          = "STITCH 1"
	DefaultPairSecond         = "STITCH 2"
	DefaultPairLabel          = "Side Effect Name"
	DefaultOutputPath         = "data/processed/drug_interactions_annotated.csv"
	DefaultFetchTimeout       = 10 * time.Minute
)

// PipelineFile is the YAML layout of the pipeline sources file.
type PipelineFile struct {
	Output       string        `yaml:"output"`
	ChunkSize    int           `yaml:"chunk_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Aggregate    struct {
		Mode interactions.Mode `yaml:"mode"`
		// Nil means the default subset; zero means every compound.
		SubsetSize *int `yaml:"subset_size"`
	} `yaml:"aggregate"`
	Sources struct {
		Compounds struct {
			interactions.SourceFile      `yaml:",inline"`
			interactions.CompoundColumns `yaml:",inline"`
		} `yaml:"compounds"`
		Individual struct {
			interactions.SourceFile        `yaml:",inline"`
			interactions.IndividualColumns `yaml:",inline"`
		} `yaml:"individual"`
		Pairwise struct {
			interactions.SourceFile      `yaml:",inline"`
			interactions.PairwiseColumns `yaml:",inline"`
		} `yaml:"pairwise"`
	} `yaml:"sources"`
}

// LoadPipeline reads a pipeline file and returns build options with every
// unset field defaulted.
func LoadPipeline(path string) (interactions.BuildOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interactions.BuildOptions{}, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes YAML bytes into build options.
func ParsePipeline(data []byte) (interactions.BuildOptions, error) {
	var file PipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return interactions.BuildOptions{}, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	opts := applyPipelineDefaults(file)
	if err := validatePipeline(opts); err != nil {
		return interactions.BuildOptions{}, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return opts, nil
}

func applyPipelineDefaults(file PipelineFile) interactions.BuildOptions {
	src := file.Sources
	opts := interactions.BuildOptions{
		Compounds:         src.Compounds.SourceFile,
		CompoundColumns:   src.Compounds.CompoundColumns,
		Individual:        src.Individual.SourceFile,
		IndividualColumns: src.Individual.IndividualColumns,
		Pairwise:          src.Pairwise.SourceFile,
		PairwiseColumns:   src.Pairwise.PairwiseColumns,
		OutputPath:        file.Output,
		ChunkSize:         file.ChunkSize,
		FetchTimeout:      file.FetchTimeout,
		Aggregate: interactions.AggregateOptions{
			Mode:       file.Aggregate.Mode,
			SubsetSize: interactions.DefaultSubsetSize,
		},
	}

	setDefault(&opts.CompoundColumns.ID, DefaultCompoundIDColumn)
	setDefault(&opts.CompoundColumns.Name, DefaultCompoundNameColumn)
	setDefault(&opts.IndividualColumns.ID, DefaultIndividualID)
	setDefault(&opts.IndividualColumns.Label, DefaultIndividualLabel)
	setDefault(&opts.PairwiseColumns.First, DefaultPairFirst)
	setDefault(&opts.PairwiseColumns.Second, DefaultPairSecond)
	setDefault(&opts.PairwiseColumns.Label, DefaultPairLabel)
	setDefault(&opts.OutputPath, DefaultOutputPath)

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = interactions.DefaultChunkSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Aggregate.Mode == "" {
		opts.Aggregate.Mode = interactions.ModeAllPairs
	}
	if file.Aggregate.SubsetSize != nil {
		opts.Aggregate.SubsetSize = *file.Aggregate.SubsetSize
	}

	return opts
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func validatePipeline(opts interactions.BuildOptions) error {
	for name, path := range map[string]string{
		"sources.compounds.path":  opts.Compounds.Path,
		"sources.individual.path": opts.Individual.Path,
		"sources.pairwise.path":   opts.Pairwise.Path,
	} {
		if path == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	switch opts.Aggregate.Mode {
	case interactions.ModeAllPairs, interactions.ModeCoOccurring:
	default:
		return fmt.Errorf("aggregate.mode must be %s or %s, got: %s",
			interactions.ModeAllPairs, interactions.ModeCoOccurring, opts.Aggregate.Mode)
	}

	if opts.Aggregate.SubsetSize < 0 {
		return fmt.Errorf("aggregate.subset_size cannot be negative, got: %d", opts.Aggregate.SubsetSize)
	}
	return nil
}
