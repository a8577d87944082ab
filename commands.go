package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polyrisk/polyrisk-api/config"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/polyrisk/polyrisk-api/validation"
)

// signalContext is cancelled on SIGINT or SIGTERM so long reads stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-dataset",
		Short: "Build the annotated interaction dataset once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = os.Getenv("PIPELINE_CONFIG")
			}
			if path == "" {
				return fmt.Errorf("--config or PIPELINE_CONFIG is required")
			}

			opts, err := config.LoadPipeline(path)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			dataset, err := interactions.NewBuilder(opts).Build(ctx)
			if err != nil {
				return fmt.Errorf("failed to build dataset: %w", err)
			}

			validator := validation.NewDataValidator()
			if err := validator.ValidateDataset(dataset); err != nil {
				return fmt.Errorf("dataset rejected: %w", err)
			}
			report := validator.ReportDataQuality(dataset)

			return printJSON(cmd, map[string]any{
				"build":   dataset,
				"quality": report,
			})
		},
	}
	cmd.Flags().String("config", "", "Path to the pipeline YAML file")
	return cmd
}

func convertStitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert-stitch <src> <dst>",
		Short: "Convert a STITCH chemicals TSV (optionally gzipped) to CSV with canonical identifiers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idColumn, _ := cmd.Flags().GetString("id-column")
			nameColumn, _ := cmd.Flags().GetString("name-column")
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")

			ctx, cancel := signalContext()
			defer cancel()

			stats, err := interactions.ConvertStitchChemicals(ctx, args[0], args[1], idColumn, nameColumn, chunkSize)
			if err != nil {
				return err
			}
			logging.Info("STITCH chemicals converted",
				"src", args[0],
				"dst", args[1],
				"written", stats.Written,
				"normalized", stats.Normalized,
				"malformed", stats.MalformedRows)
			if stats.RemainingVariants > 0 {
				logging.Warn("Identifiers still use a non-canonical form", "count", stats.RemainingVariants)
			}
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().String("id-column", config.DefaultCompoundIDColumn, "Identifier column")
	cmd.Flags().String("name-column", config.DefaultCompoundNameColumn, "Name column")
	cmd.Flags().Int("chunk-size", interactions.DefaultChunkSize, "Rows per read chunk")
	return cmd
}

func pairwiseFlags(cmd *cobra.Command) {
	cmd.Flags().String("first-column", config.DefaultPairFirst, "First compound identifier column")
	cmd.Flags().String("second-column", config.DefaultPairSecond, "Second compound identifier column")
	cmd.Flags().String("label-column", config.DefaultPairLabel, "Side effect label column")
}

func pairwiseColumns(cmd *cobra.Command) interactions.PairwiseColumns {
	first, _ := cmd.Flags().GetString("first-column")
	second, _ := cmd.Flags().GetString("second-column")
	label, _ := cmd.Flags().GetString("label-column")
	return interactions.PairwiseColumns{First: first, Second: second, Label: label}
}

func polypharmacyDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polypharmacy-dataset <chemicals> <twosides> <out>",
		Short: "Attach drug names to every TWOSIDES row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")
			idColumn, _ := cmd.Flags().GetString("id-column")
			nameColumn, _ := cmd.Flags().GetString("name-column")

			ctx, cancel := signalContext()
			defer cancel()

			compounds, _, err := interactions.LoadCompounds(ctx, args[0],
				interactions.CompoundColumns{ID: idColumn, Name: nameColumn}, chunkSize)
			if err != nil {
				return fmt.Errorf("failed to load chemicals: %w", err)
			}

			stats, err := interactions.BuildPolypharmacyDataset(ctx, interactions.NameIndex(compounds),
				args[1], pairwiseColumns(cmd), args[2], chunkSize)
			if err != nil {
				return err
			}
			logging.Info("Polypharmacy dataset written",
				"out", args[2],
				"records", stats.Records,
				"match_rate", stats.MatchRate())
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().String("id-column", config.DefaultCompoundIDColumn, "Chemicals identifier column")
	cmd.Flags().String("name-column", config.DefaultCompoundNameColumn, "Chemicals name column")
	cmd.Flags().Int("chunk-size", interactions.DefaultChunkSize, "Rows per read chunk")
	pairwiseFlags(cmd)
	return cmd
}

func verifyTwosidesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-twosides <path>",
		Short: "Check that TWOSIDES identifiers use the canonical CID form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, _ := cmd.Flags().GetInt("sample")

			report, err := interactions.VerifyTwosides(args[0], pairwiseColumns(cmd), sample)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.Valid() {
				return fmt.Errorf("%d variant and %d unrecognized identifiers in %d sampled rows",
					report.VariantIDs, report.OtherIDs, report.SampledRows)
			}
			return nil
		},
	}
	cmd.Flags().Int("sample", 1000, "Number of rows to inspect")
	pairwiseFlags(cmd)
	return cmd
}
