package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ocmods/internal/source/catalog"
	"ocmods/internal/storage/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change the settings stored in config.yaml.

Examples:
  ocmods config show
  ocmods config set-server https://mods.openclonk.org/api/
  ocmods config set-mods-dir ~/.clonk/openclonk/mods`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the mod database API base URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetServer,
}

var configSetModsDirCmd = &cobra.Command{
	Use:   "set-mods-dir <path>",
	Short: "Set the directory mods are installed into",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetModsDir,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configSetModsDirCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	data, err := yaml.Marshal(svc.Config())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigSetServer(cmd *cobra.Command, args []string) error {
	client := catalog.NewClient(nil, args[0])
	if err := client.Validate(); err != nil {
		return err
	}
	return updateStoredConfig(cmd, func(c *config.Config) {
		c.ServerURL = client.BaseURL()
	})
}

func runConfigSetModsDir(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving mods dir: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return updateStoredConfig(cmd, func(c *config.Config) {
		c.ModsDir = dir
	})
}

// updateStoredConfig applies change to the config file in the config directory
func updateStoredConfig(cmd *cobra.Command, change func(*config.Config)) error {
	cfg, err := getServiceConfig()
	if err != nil {
		return err
	}

	stored, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	change(stored)
	if err := stored.Save(cfg.ConfigDir); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", filepath.Join(cfg.ConfigDir, config.FileName))
	return nil
}
