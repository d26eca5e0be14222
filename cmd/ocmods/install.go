package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/spf13/cobra"
)

var installYes bool

var installCmd = &cobra.Command{
	Use:   "install <mod-id>...",
	Short: "Install mods and their dependencies",
	Long: `Install one or more mods from the mod database.

Ids may be given as separate arguments or joined with "-". Dependencies are
installed as well. Files that already exist with a matching checksum are not
downloaded again.

Examples:
  ocmods install 42
  ocmods install 42 17
  ocmods install 42-17-8 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	reqs := core.ParseIDList(strings.Join(args, "-"))
	if len(reqs) == 0 {
		return fmt.Errorf("%w: no mod ids given", domain.ErrModNotFound)
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := svc.NewPipeline()
	defer p.Cancel()

	if err := p.StartIDs(ctx, reqs...); err != nil {
		return err
	}
	return finishRun(cmd, p, installYes)
}

// finishRun drives a started pipeline and reports its outcome
func finishRun(cmd *cobra.Command, p *core.Pipeline, assumeYes bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	result, err := runPipeline(ctx, p, cmd.InOrStdin(), out, assumeYes)
	if err != nil {
		var nothing *domain.NothingToDoError
		if errors.As(err, &nothing) && nothing.AlreadyInstalled && len(nothing.Details) == 0 {
			fmt.Fprintln(out, "All mods are already installed and up to date.")
			return nil
		}
		return err
	}
	return printResult(out, result)
}
