package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/visionbridge/internal/benchmark"
	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/spf13/cobra"
)

// benchmarkCmd represents the benchmark command.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <image>",
	Short: "Measure recognition latency on one image",
	Long: `Run decoding, preprocessing, the static image path and the frame path
for one feature repeatedly and report timing and allocation figures.

Examples:
  visionbridge benchmark qr.png --feature barcode --iterations 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		featureFlag, _ := cmd.Flags().GetString("feature")
		feature := resolveFeature(featureFlag)
		iterations, _ := cmd.Flags().GetInt("iterations")
		if iterations < 1 {
			return fmt.Errorf("invalid iterations: %d (must be at least 1)", iterations)
		}

		p, err := preprocess.New(cfg.PreprocessConfig())
		if err != nil {
			return err
		}
		backends := cfg.Backends()
		module := bridge.NewModule(cfg.BridgeModuleConfig(), p, backends)
		defer func() { _ = module.Close() }()

		suite, cleanup, err := benchmark.NewRecognitionSuite(benchmark.Target{
			Path:    args[0],
			Feature: feature,
			Options: cfg.DefaultOptions(feature),
		}, p, module, plugin.NewRegistry(p, backends))
		if err != nil {
			return err
		}
		defer cleanup()

		results := suite.RunAll(cmd.Context(), iterations)
		suite.WriteResults(cmd.OutOrStdout())

		for _, r := range results {
			if r.Error != nil {
				return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	benchmarkCmd.Flags().StringP("feature", "f", "barcode", "feature: text, barcode, label, object (or the full feature key)")
	benchmarkCmd.Flags().IntP("iterations", "n", 10, "iterations per benchmark")
}
