package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/visionbridge/internal/config"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/spf13/cobra"
)

// featuresCmd represents the features command.
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List recognition features and their backends",
	Long: `List every recognition feature and whether the configured backends
support it. Unsupported features fail with UNSUPPORTED_FEATURE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		backends := cfg.Backends()
		out := cmd.OutOrStdout()

		for _, feature := range plugin.AllFeatures() {
			status := "unsupported"
			if backends.Supports(feature) {
				status = "supported"
			}
			detail := ""
			switch feature {
			case plugin.TextRecognition:
				detail = fmt.Sprintf("backend=%s", cfg.Text.Backend)
				if cfg.Text.Backend == config.TextBackendRemote {
					detail += " endpoint=" + cfg.Text.Endpoint
				}
			case plugin.BarcodeScanning:
				detail = fmt.Sprintf("backend=%s formats=%v", cfg.Barcode.Backend, cfg.Barcode.Formats)
			}
			_, _ = fmt.Fprintf(out, "%-16s %-12s %s\n", feature, status, detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
