package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/spf13/cobra"
)

var (
	updateYes   bool
	updateCheck bool
)

var updateCmd = &cobra.Command{
	Use:   "update [mod-id]...",
	Short: "Update installed mods",
	Long: `Refresh installed mods from the mod database.

Without arguments every installed mod is updated. Only files whose checksum
differs from the server copy are downloaded. Use --check to list mods with a
newer upload without changing anything.

Examples:
  ocmods update
  ocmods update 42 --yes
  ocmods update --check`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "skip confirmation prompt")
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "only report mods with newer uploads")

	rootCmd.AddCommand(updateCmd)
}

type updateJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Installed string `json:"installed_updated_at"`
	Available string `json:"available_updated_at"`
}

func runUpdate(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := svc.Registry().WaitUntilScanComplete(ctx); err != nil {
		return err
	}

	if updateCheck {
		return runUpdateCheck(ctx, cmd, svc)
	}

	reqs, err := svc.NewUpdater().UpdateRequests()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		byID := make(map[string]domain.ModRequest, len(reqs))
		for _, r := range reqs {
			byID[r.ID] = r
		}
		reqs = reqs[:0]
		for _, id := range args {
			r, ok := byID[id]
			if !ok {
				return fmt.Errorf("mod %s: %w", id, domain.ErrModNotFound)
			}
			reqs = append(reqs, r)
		}
	}

	p := svc.NewPipeline()
	defer p.Cancel()

	if err := p.StartIDs(ctx, reqs...); err != nil {
		return err
	}
	return finishRun(cmd, p, updateYes)
}

func runUpdateCheck(ctx context.Context, cmd *cobra.Command, svc *core.Service) error {
	updates, err := svc.NewUpdater().CheckUpdates(ctx, svc.NewCatalogClient())
	out := cmd.OutOrStdout()

	if jsonOutput {
		output := make([]updateJSON, 0, len(updates))
		for _, u := range updates {
			output = append(output, updateJSON{ID: u.ID, Title: u.Title, Installed: u.LocalUpdatedAt, Available: u.RemoteUpdatedAt})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(output); encErr != nil {
			return fmt.Errorf("encoding json: %w", encErr)
		}
		return err
	}

	if len(updates) == 0 {
		if err == nil {
			fmt.Fprintln(out, "All mods are up to date.")
		}
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tINSTALLED\tAVAILABLE\t")
	fmt.Fprintln(w, "--\t-----\t---------\t---------\t")
	for _, u := range updates {
		installed := u.LocalUpdatedAt
		if installed == "" {
			installed = "unknown"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", u.ID, truncate(u.Title, 40), installed, colorYellow(u.RemoteUpdatedAt))
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d update(s) available. Run 'ocmods update' to install them.\n", len(updates))
	return err
}
