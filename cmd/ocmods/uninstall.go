package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/spf13/cobra"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <mod-id>",
	Short: "Uninstall a mod",
	Long: `Remove an installed mod from the mods directory and the install history.

Installed mods that depend on it are listed before asking for confirmation.

Examples:
  ocmods uninstall 42
  ocmods uninstall 42 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	modID := args[0]

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := svc.InstalledEntries(ctx)
	if err != nil {
		return err
	}

	name := modID
	records := make([]domain.ModRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Record
		if e.Record.ID == modID {
			name = e.Record.DisplayName()
		}
	}

	out := cmd.OutOrStdout()
	if dependents := core.Dependents(modID, records); len(dependents) > 0 {
		names := make([]string, len(dependents))
		for i, d := range dependents {
			names[i] = fmt.Sprintf("%s (%s)", d.DisplayName(), d.ID)
		}
		fmt.Fprintf(out, "%s %s is required by: %s\n", colorYellow("Warning:"), name, strings.Join(names, ", "))
	}

	if !uninstallYes {
		if !prompt(bufio.NewReader(cmd.InOrStdin()), out, fmt.Sprintf("Uninstall %s?", name)) {
			fmt.Fprintln(out, "Aborted.")
			return ErrCancelled
		}
	}

	info, err := svc.Uninstall(ctx, modID)
	if err != nil {
		return err
	}

	if info.Path == "" {
		fmt.Fprintf(out, "Removed install record of %s\n", modID)
		return nil
	}
	fmt.Fprintf(out, "%s Uninstalled %s (%s)\n", colorGreen("✓"), name, info.Path)
	return nil
}
