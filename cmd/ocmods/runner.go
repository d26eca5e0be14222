package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ocmods/internal/core"

	"github.com/dustin/go-humanize"
)

// pollInterval is how often a command advances a running pipeline
const pollInterval = 20 * time.Millisecond

// runPipeline drives a started pipeline until it finishes. Status changes are
// printed to out; the confirmation question is answered from in unless assumeYes is set.
func runPipeline(ctx context.Context, p *core.Pipeline, in io.Reader, out io.Writer, assumeYes bool) (*core.Result, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	reader := bufio.NewReader(in)
	lastStatus := ""

	for {
		stage := p.Advance()

		switch stage {
		case core.StageConfirmationPending:
			question := p.Confirmation().Message()
			if assumeYes {
				fmt.Fprintln(out, question, "yes")
				p.Confirm(true)
				continue
			}
			if !prompt(reader, out, question) {
				p.Confirm(false)
				fmt.Fprintln(out, "Aborted.")
				return nil, ErrCancelled
			}
			p.Confirm(true)
			continue
		case core.StageDone:
			return p.Result(), nil
		case core.StageError:
			return p.Result(), p.Err()
		case core.StageIdle:
			return nil, ErrCancelled
		}

		if status := p.Status(); status != lastStatus && status != "" {
			lastStatus = status
			if stage == core.StageDownloading {
				done, total := p.Progress()
				fmt.Fprintf(out, "%s (%s / %s)\n", status, humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
			} else if verbose {
				fmt.Fprintln(out, status)
			}
		}

		select {
		case <-ctx.Done():
			p.Cancel()
			return nil, ErrCancelled
		case <-ticker.C:
		}
	}
}

// prompt asks a yes/no question, defaulting to no
func prompt(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}

// printResult reports installed mods and per-mod errors. Returns an error if any mod failed.
func printResult(out io.Writer, result *core.Result) error {
	if result == nil {
		return nil
	}
	for _, inst := range result.Installed {
		fmt.Fprintf(out, "%s %s -> %s\n", colorGreen("✓"), inst.Record.DisplayName(), inst.Path)
	}
	for _, err := range result.Errors {
		fmt.Fprintf(out, "%s %v\n", colorRed("✗"), err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d mod(s) failed", len(result.Errors))
	}
	return nil
}
