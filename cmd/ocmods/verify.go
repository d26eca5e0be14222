package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"ocmods/internal/core"
	"ocmods/internal/storage/modsdir"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [mod-id]",
	Short: "Verify installed files against their checksums",
	Long: `Check every installed file against the SHA-1 digest recorded in the
mod's resource.xml.

Reports missing files and checksum mismatches. Run 'ocmods update <id>' to
repair a broken mod.

Examples:
  ocmods verify
  ocmods verify 42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

const (
	verifyOK        = "ok"
	verifyMissing   = "missing"
	verifyMismatch  = "mismatch"
	verifyUnchecked = "unchecked"
)

type verifyFileJSON struct {
	ModID   string `json:"mod_id"`
	ModName string `json:"mod_name"`
	File    string `json:"file"`
	Status  string `json:"status"`
}

type verifyJSONOutput struct {
	Files    []verifyFileJSON `json:"files"`
	Issues   int              `json:"issues"`
	Warnings int              `json:"warnings"`
}

func runVerify(cmd *cobra.Command, args []string) error {
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
	if len(args) > 0 {
		var filtered []core.Entry
		for _, e := range entries {
			if e.Record.ID == args[0] {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("mod %s is not installed", args[0])
		}
		entries = filtered
	}

	var files []verifyFileJSON
	var warnings int
	type job struct {
		index int
		path  string
		sha1  string
	}
	var jobs []job

	for _, e := range entries {
		if e.Record.MetadataMissing {
			files = append(files, verifyFileJSON{ModID: e.Record.ID, ModName: e.Record.DisplayName(), Status: verifyUnchecked})
			warnings++
			continue
		}
		for _, f := range e.Record.Files {
			item := verifyFileJSON{ModID: e.Record.ID, ModName: e.Record.DisplayName(), File: f.Name}
			path, err := modsdir.FilePath(e.LocalPath, f.Name)
			if err != nil {
				item.Status = verifyMissing
				files = append(files, item)
				continue
			}
			if !f.HasChecksum() {
				item.Status = verifyUnchecked
				if _, err := os.Stat(path); err != nil {
					item.Status = verifyMissing
				} else {
					warnings++
				}
				files = append(files, item)
				continue
			}
			files = append(files, item)
			jobs = append(jobs, job{index: len(files) - 1, path: path, sha1: f.SHA1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(svc.Config().ChecksumWorkers, 1))
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := core.FileSHA1(j.path)
			switch {
			case err != nil:
				files[j.index].Status = verifyMissing
			case !strings.EqualFold(sum, strings.TrimSpace(j.sha1)):
				files[j.index].Status = verifyMismatch
			default:
				files[j.index].Status = verifyOK
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.SliceStable(files, func(i, j int) bool { return modsdir.LessID(files[i].ModID, files[j].ModID) })

	var issues int
	for _, f := range files {
		if f.Status == verifyMissing || f.Status == verifyMismatch {
			issues++
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if files == nil {
			files = []verifyFileJSON{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verifyJSONOutput{Files: files, Issues: issues, Warnings: warnings}); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	} else {
		if len(entries) == 0 {
			fmt.Fprintln(out, "No installed mods to verify.")
			return nil
		}
		for _, f := range files {
			switch f.Status {
			case verifyOK:
				if verbose {
					fmt.Fprintf(out, "%s %s/%s\n", colorGreen("✓"), f.ModName, f.File)
				}
			case verifyMissing:
				fmt.Fprintf(out, "%s %s/%s - MISSING\n", colorRed("X"), f.ModName, f.File)
			case verifyMismatch:
				fmt.Fprintf(out, "%s %s/%s - CHECKSUM MISMATCH\n", colorRed("X"), f.ModName, f.File)
			case verifyUnchecked:
				if f.File == "" {
					fmt.Fprintf(out, "%s %s - no resource.xml, cannot verify\n", colorYellow("?"), f.ModName)
				} else {
					fmt.Fprintf(out, "%s %s/%s - no checksum\n", colorYellow("?"), f.ModName, f.File)
				}
			}
		}
		fmt.Fprintf(out, "\nChecked %d file(s): %d issue(s), %d warning(s)\n", len(files), issues, warnings)
	}

	if issues > 0 {
		return fmt.Errorf("%d file(s) failed verification", issues)
	}
	return nil
}
