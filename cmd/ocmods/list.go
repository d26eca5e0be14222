package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed mods",
	Long: `List the mods installed in the mods directory.

Mods whose dependencies are not installed are flagged. Use --filter for a
fuzzy match on title, slug or id.

Examples:
  ocmods list
  ocmods list --filter castle
  ocmods list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter on title, slug or id")

	rootCmd.AddCommand(listCmd)
}

type listEntryJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	UpdatedAt   string   `json:"updated_at"`
	Path        string   `json:"path"`
	InstalledAt string   `json:"installed_at,omitempty"`
	Missing     []string `json:"missing_dependencies,omitempty"`
	NoMetadata  bool     `json:"metadata_missing,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
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

	records := make([]domain.ModRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}
	missing := core.MissingDependencies(records)

	installedAt := make(map[string]time.Time)
	history, err := svc.DB().GetInstalls()
	if err != nil {
		svc.Logger().Warn("reading install history", "error", err)
	}
	for _, h := range history {
		installedAt[h.ModID] = h.InstalledAt
	}

	if listFilter != "" {
		entries = core.FilterEntries(entries, listFilter)
	} else {
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Record.DisplayName()) < strings.ToLower(entries[j].Record.DisplayName())
		})
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		output := make([]listEntryJSON, 0, len(entries))
		for _, e := range entries {
			item := listEntryJSON{
				ID:         e.Record.ID,
				Title:      e.Record.DisplayName(),
				Author:     e.Record.DisplayAuthor(),
				UpdatedAt:  e.Record.UpdatedAt,
				Path:       e.LocalPath,
				Missing:    missing[e.Record.ID],
				NoMetadata: e.Record.MetadataMissing,
			}
			if at, ok := installedAt[e.Record.ID]; ok {
				item.InstalledAt = at.Format(time.RFC3339)
			}
			output = append(output, item)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No mods installed.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tUPDATED\tINSTALLED\t")
	fmt.Fprintln(w, "--\t-----\t------\t-------\t---------\t")
	for _, e := range entries {
		installed := "-"
		if at, ok := installedAt[e.Record.ID]; ok {
			installed = humanize.Time(at)
		}
		title := truncate(e.Record.DisplayName(), 40)
		if e.Record.MetadataMissing {
			title += " " + colorYellow("(no resource.xml)")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			e.Record.ID,
			title,
			truncate(e.Record.DisplayAuthor(), 20),
			e.Record.UpdatedDate(),
			installed,
		)
	}
	w.Flush()

	var warned bool
	for _, e := range entries {
		deps := missing[e.Record.ID]
		if len(deps) == 0 {
			continue
		}
		if !warned {
			fmt.Fprintln(out)
			warned = true
		}
		fmt.Fprintf(out, "%s %s requires %s which is not installed\n",
			colorYellow("!"), e.Record.DisplayName(), strings.Join(deps, ", "))
	}

	fmt.Fprintf(out, "\n%d mod(s) installed in %s\n", len(entries), svc.ModsDir().Root())
	return nil
}
