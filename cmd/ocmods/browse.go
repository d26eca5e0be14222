package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ocmods/internal/core"
	"ocmods/internal/storage/config"
	"ocmods/internal/tui"
	"ocmods/internal/tui/views"

	"github.com/spf13/cobra"
)

// LogFile receives log output while the terminal UI owns the screen
const LogFile = "ocmods.log"

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and manage mods interactively",
	Long: `Open the interactive mod browser.

Search the mod database, install mods with their dependencies, update or
uninstall installed mods and change settings. Log output is written to
ocmods.log in the data directory.

Type "#" followed by mod ids joined with "-" in the search field to install
mods by id.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := getServiceConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	svc, err := initServiceWithLogger(newLogger(logFile))
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend := newBackend(svc)
	return tui.Run(ctx, backend, tui.NewKeyMap(svc.Config().Keybindings))
}

// newBackend wires the service into the terminal UI. Browse, installed list and
// pipeline each get their own catalog client.
func newBackend(svc *core.Service) tui.Backend {
	appConfig := svc.Config()

	return tui.Backend{
		Browse:    svc.NewListController(),
		Installed: svc.NewListController(),
		Pipeline:  svc.NewPipeline(),
		Updater:   svc.NewUpdater(),
		Uninstall: func(ctx context.Context, id string) error {
			_, err := svc.Uninstall(ctx, id)
			return err
		},
		Settings: views.SettingsData{
			PageSize:        appConfig.PageSize,
			Keybindings:     appConfig.Keybindings,
			ChecksumWorkers: appConfig.ChecksumWorkers,
		},
		SaveSettings: func(s views.SettingsData) error {
			// Reload so flag overrides of the running session are not persisted
			stored, err := config.Load(svc.ConfigDir())
			if err != nil {
				return err
			}
			stored.PageSize = s.PageSize
			stored.Keybindings = s.Keybindings
			stored.ChecksumWorkers = s.ChecksumWorkers
			if err := stored.Save(svc.ConfigDir()); err != nil {
				return err
			}
			appConfig.PageSize = s.PageSize
			appConfig.Keybindings = s.Keybindings
			appConfig.ChecksumWorkers = s.ChecksumWorkers
			return nil
		},
	}
}
