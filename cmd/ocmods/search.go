package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"ocmods/internal/core"
	"ocmods/internal/source/catalog"

	"github.com/spf13/cobra"
)

var (
	searchTags       []string
	searchSort       string
	searchLimit      int
	searchPage       int
	searchCompatible bool
	searchPlayable   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the mod database",
	Long: `Search the OpenClonk mod database.

Without a query all uploads are listed. Results are paginated; use --page to
move through them and --limit to change the page size.

Examples:
  ocmods search castle
  ocmods search --tags scenario --sort -updatedAt
  ocmods search "tower defense" --page 2 --compatible=false`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTags, "tags", "t", nil, "only mods carrying all of these tags")
	searchCmd.Flags().StringVarP(&searchSort, "sort", "s", "", "sort key: title, updatedAt; prefix with - for descending")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "results per page (default: page_size from config)")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "page to show")
	searchCmd.Flags().BoolVar(&searchCompatible, "compatible", true, "only mods tagged for the configured game version")
	searchCmd.Flags().BoolVar(&searchPlayable, "playable", false, "only scenarios")

	rootCmd.AddCommand(searchCmd)
}

type searchEntryJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	UpdatedAt string   `json:"updated_at"`
	Tags      []string `json:"tags"`
	Installed bool     `json:"installed"`
}

type searchJSONOutput struct {
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
	Total   int               `json:"total"`
	Results []searchEntryJSON `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	sortKey, desc, err := catalog.ParseSortKey(searchSort)
	if err != nil {
		return err
	}
	if searchPage < 1 {
		return fmt.Errorf("page must be at least 1, got %d", searchPage)
	}
	if searchLimit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", searchLimit)
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

	cfg := svc.Config()
	pageSize := cfg.PageSize
	if searchLimit > 0 {
		pageSize = searchLimit
	}
	list := core.NewListController(core.ListControllerConfig{
		Catalog:    svc.NewCatalogClient(),
		Registry:   svc.Registry(),
		PageSize:      pageSize,
		RetryCooldown: cfg.RetryCooldown,
		VersionTag:    cfg.VersionTag,
		Logger:        svc.Logger(),
	})
	defer list.Cancel()

	// Installed markers need the finished scan
	if err := svc.Registry().WaitUntilScanComplete(ctx); err != nil {
		return err
	}

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	list.Search(ctx, core.ListQuery{
		Text:       query,
		Tags:       searchTags,
		Sort:       sortKey,
		Descending: desc,
		Compatible: searchCompatible,
		Playable:   searchPlayable,
	})

	state, err := waitForList(ctx, list)
	for err == nil && state == core.ListLoaded && list.CurrentPage() < searchPage {
		if !list.NextPage() {
			return fmt.Errorf("page %d out of range, there are %d page(s)", searchPage, list.TotalPages())
		}
		state, err = waitForList(ctx, list)
	}
	if err != nil {
		return err
	}

	entries := list.Entries()
	out := cmd.OutOrStdout()

	if jsonOutput {
		output := searchJSONOutput{
			Page:    list.CurrentPage(),
			Pages:   list.TotalPages(),
			Total:   list.Total(),
			Results: make([]searchEntryJSON, 0, len(entries)),
		}
		for _, e := range entries {
			output.Results = append(output.Results, searchEntryJSON{
				ID:        e.Record.ID,
				Title:     e.Record.DisplayName(),
				Author:    e.Record.DisplayAuthor(),
				UpdatedAt: e.Record.UpdatedAt,
				Tags:      e.Record.Tags,
				Installed: e.Installed,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	if state == core.ListNoResults || len(entries) == 0 {
		fmt.Fprintln(out, "No mods found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tUPDATED\tTAGS\t")
	fmt.Fprintln(w, "--\t-----\t------\t-------\t----\t")
	for _, e := range entries {
		title := truncate(e.Record.DisplayName(), 40)
		if e.Installed {
			title += " " + colorGreen("[installed]")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			e.Record.ID,
			title,
			truncate(e.Record.DisplayAuthor(), 20),
			e.Record.UpdatedDate(),
			truncate(strings.Join(e.Record.FreeTags(), ", "), 30),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nPage %d of %d (%d mods). Use 'ocmods install <id>' to install.\n",
		list.CurrentPage(), list.TotalPages(), list.Total())
	return nil
}

// waitForList polls the controller until its request finished. A failed search is
// returned as an error instead of waiting for the retry.
func waitForList(ctx context.Context, list *core.ListController) (core.ListState, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		switch state := list.Poll(); state {
		case core.ListLoading:
		case core.ListFailed:
			return state, fmt.Errorf("search failed: %s", list.Message())
		default:
			return state, nil
		}

		select {
		case <-ctx.Done():
			list.Cancel()
			return core.ListIdle, ErrCancelled
		case <-ticker.C:
		}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
