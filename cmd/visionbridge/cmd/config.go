package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/visionbridge/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and generate configuration",
	Long: `Inspect the effective configuration or write a default configuration file.

Configuration is read from visionbridge.yaml in the search paths, then
overridden by VISIONBRIDGE_* environment variables and command line flags.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(GetConfig())
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(filename); err == nil && !force {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", filename)
		}
		if err := config.GenerateDefaultConfigFile(filename); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", filename)
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show where configuration is loaded from",
	Run: func(cmd *cobra.Command, args []string) {
		GetConfigLoader().PrintConfigInfo(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathsCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
