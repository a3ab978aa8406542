package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/visionbridge/internal/config"
	"github.com/MeKo-Tech/visionbridge/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "visionbridge",
	Short: "On-device style vision recognition for camera frames and images",
	Long: `visionbridge runs text recognition, barcode scanning, image labeling and
object detection on camera frames and static images, and returns plain,
JSON-ready result maps.

This tool provides:
- Static image processing from paths, file://, http(s):// and data: URIs
- A live frame endpoint over WebSocket with frame skipping
- Per-feature recognizer caching keyed by recognition options
- Both CLI and server modes

Examples:
  visionbridge image photo.jpg --feature barcode
  visionbridge image https://example.com/receipt.png --feature text --language KOREAN
  visionbridge serve --port 8090
  visionbridge config show`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "visionbridge version "+version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/visionbridge, /etc/visionbridge)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		globalConfig = cfg
		setupLogging(cfg)
		return nil
	}
}

// loadConfig reads the config file, environment and bound flags. Each call
// starts from a fresh viper so repeated executions do not share state.
func loadConfig() (*config.Config, error) {
	v := viper.New()
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	configLoader = config.NewLoaderWithViper(v)
	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	// stdout carries command results, logs go to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Falling back to default configuration", "error", err)
			d := config.DefaultConfig()
			return &d
		}
		globalConfig = cfg
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
