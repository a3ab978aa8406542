package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/batch"
	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/common"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/spf13/cobra"
)

var featureAliases = map[string]string{
	"text":    plugin.TextRecognition,
	"ocr":     plugin.TextRecognition,
	"barcode": plugin.BarcodeScanning,
	"label":   plugin.ImageLabeling,
	"labels":  plugin.ImageLabeling,
	"object":  plugin.ObjectDetection,
	"objects": plugin.ObjectDetection,
}

// resolveFeature maps a short alias or a feature key onto the feature key.
func resolveFeature(s string) string {
	if f, ok := featureAliases[strings.ToLower(s)]; ok {
		return f
	}
	return s
}

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image <path|uri|dir>...",
	Short: "Run a recognition feature on static images",
	Long: `Run text recognition, barcode scanning, image labeling or object detection
on one or more images. Inputs may be file paths, directories, or file://,
http(s):// and data: URIs.

Examples:
  visionbridge image photo.jpg --feature barcode
  visionbridge image scan.png --feature text --language JAPANESE --orientation landscape-left
  visionbridge image ./shelf --recursive --include "*.jpg" --format csv --stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		featureFlag, _ := cmd.Flags().GetString("feature")
		feature := resolveFeature(featureFlag)
		format, _ := cmd.Flags().GetString("format")
		if !batch.IsValidFormat(format) {
			return fmt.Errorf("invalid output format: %s (must be one of: %s, %s, %s)",
				format, batch.FormatJSON, batch.FormatText, batch.FormatCSV)
		}

		options, err := imageOptions(cmd, cfg.DefaultOptions(feature))
		if err != nil {
			return err
		}

		recursive, _ := cmd.Flags().GetBool("recursive")
		include, _ := cmd.Flags().GetStringSlice("include")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		inputs, err := batch.Discover(args, batch.DiscoveryOptions{
			Recursive:       recursive,
			IncludePatterns: include,
			ExcludePatterns: exclude,
		})
		if err != nil {
			return fmt.Errorf("failed to discover images: %w", err)
		}
		if len(inputs) == 0 {
			return errors.New("no image files found")
		}

		p, err := preprocess.New(cfg.PreprocessConfig())
		if err != nil {
			return err
		}
		module := bridge.NewModule(cfg.BridgeModuleConfig(), p, cfg.Backends())
		defer func() { _ = module.Close() }()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res := batch.Run(ctx, module, feature, inputs, options)
		res.Workers = cfg.Bridge.Workers

		output, err := res.Format(format)
		if err != nil {
			return err
		}
		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		} else {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), output)
		}

		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), batch.FormatStats(res.Stats()))
		}

		if failed := res.FailedCount(); failed > 0 {
			return fmt.Errorf("%d of %d image(s) failed", failed, len(inputs))
		}
		return nil
	},
}

// imageOptions overlays the flags that were set on the config defaults.
func imageOptions(cmd *cobra.Command, defaults map[string]any) (map[string]any, error) {
	overrides := map[string]any{}
	flags := cmd.Flags()

	if flags.Changed("orientation") {
		v, _ := flags.GetString("orientation")
		if _, ok := preprocess.ParseOrientation(v); !ok {
			return nil, fmt.Errorf("invalid orientation: %s", v)
		}
		overrides["orientation"] = v
	}
	if flags.Changed("invert") {
		v, _ := flags.GetBool("invert")
		overrides["invertColors"] = v
	}
	if flags.Changed("scale") {
		v, _ := flags.GetFloat64("scale")
		overrides["scaleFactor"] = v
	}
	if flags.Changed("language") {
		v, _ := flags.GetString("language")
		overrides["language"] = v
	}
	if flags.Changed("formats") {
		v, _ := flags.GetStringSlice("formats")
		overrides["formats"] = v
	}
	if flags.Changed("potential") {
		v, _ := flags.GetBool("potential")
		overrides["enableAllPotentialBarcodes"] = v
	}
	if flags.Changed("confidence") {
		v, _ := flags.GetInt("confidence")
		overrides["confidenceThreshold"] = v
	}
	if flags.Changed("multiple") {
		v, _ := flags.GetBool("multiple")
		overrides["enableMultipleObjects"] = v
	}
	if flags.Changed("classify") {
		v, _ := flags.GetBool("classify")
		overrides["enableClassification"] = v
	}
	if raw, _ := flags.GetString("options"); raw != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, fmt.Errorf("invalid --options JSON: %w", err)
		}
		overrides = common.Merge(overrides, extra)
	}
	return common.Merge(defaults, overrides), nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringP("feature", "f", "barcode", "feature: text, barcode, label, object (or the full feature key)")
	imageCmd.Flags().String("format", batch.FormatJSON, "output format: json, text or csv")
	imageCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
	imageCmd.Flags().Duration("timeout", 2*time.Minute, "overall processing timeout")
	imageCmd.Flags().String("orientation", "portrait", "image orientation: portrait, portrait-upside-down, landscape-left, landscape-right")
	imageCmd.Flags().Bool("invert", false, "invert colors before recognition")
	imageCmd.Flags().Float64("scale", 1.0, "scale factor, clamped to 0.9..1.0")
	imageCmd.Flags().String("language", "LATIN", "text recognition language: LATIN, CHINESE, DEVANAGARI, JAPANESE, KOREAN or a BCP-47 tag")
	imageCmd.Flags().StringSlice("formats", nil, "barcode formats, e.g. QR_CODE,EAN_13 (default ALL)")
	imageCmd.Flags().Bool("potential", false, "report located but undecoded barcodes")
	imageCmd.Flags().Int("confidence", 50, "image labeling confidence threshold (0..100)")
	imageCmd.Flags().Bool("multiple", false, "object detection: report multiple objects")
	imageCmd.Flags().Bool("classify", false, "object detection: classify objects")
	imageCmd.Flags().String("options", "", "extra options as a JSON object, merged last")
	imageCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories of directory inputs")
	imageCmd.Flags().StringSlice("include", nil, "glob patterns a directory entry must match, e.g. *.png")
	imageCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip")
	imageCmd.Flags().Bool("stats", false, "print processing statistics to stderr")
}
