package core

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"ocmods/internal/domain"
	"ocmods/internal/storage/modsdir"

	"golang.org/x/sync/errgroup"
)

// FileSHA1 returns the lowercase hex SHA-1 of a file
func FileSHA1(path string) (string, error) {
	return fileSHA1(context.Background(), path)
}

// VerifyFile reports whether the file at path has the given SHA-1 hex digest.
// An empty digest cannot be verified and always yields false, as does a missing file.
func VerifyFile(path, expectedSHA1 string) bool {
	ok, _ := verifyFile(context.Background(), path, expectedSHA1)
	return ok
}

// verifyFile also reports whether the file could be read at all
func verifyFile(ctx context.Context, path, expectedSHA1 string) (matches, exists bool) {
	if expectedSHA1 == "" {
		return false, fileExists(path)
	}
	sum, err := fileSHA1(ctx, path)
	if err != nil {
		return false, false
	}
	return strings.EqualFold(sum, strings.TrimSpace(expectedSHA1)), true
}

func fileSHA1(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, &ctxReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ctxReader stops reading once ctx is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type checksumJob struct {
	index int
	dir   string
	files []domain.FileEntry
}

type checksumResult struct {
	index      int
	remaining  []domain.FileEntry
	anyExisted bool
}

// checksumRun verifies the local copies of several mods in the background.
// Every job posts exactly one result unless the run is cancelled.
type checksumRun struct {
	results chan checksumResult
	pending int
	done    chan struct{}
}

func startChecksumRun(ctx context.Context, jobs []checksumJob, workers int) *checksumRun {
	run := &checksumRun{
		results: make(chan checksumResult, len(jobs)),
		pending: len(jobs),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(run.done)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, job := range jobs {
			g.Go(func() error {
				res := checkFiles(gctx, job)
				if err := gctx.Err(); err != nil {
					return err
				}
				run.results <- res
				return nil
			})
		}
		_ = g.Wait()
	}()

	return run
}

// wait blocks until all workers returned
func (r *checksumRun) wait() {
	<-r.done
}

// checkFiles drops every file whose local copy matches its declared hash
func checkFiles(ctx context.Context, job checksumJob) checksumResult {
	res := checksumResult{index: job.index}
	for _, f := range job.files {
		matches := false
		if f.HasChecksum() {
			if path, err := modsdir.FilePath(job.dir, f.Name); err == nil {
				matches, _ = verifyFile(ctx, path, f.SHA1)
			}
		}
		if matches {
			res.anyExisted = true
			continue
		}
		res.remaining = append(res.remaining, f)
	}
	return res
}
