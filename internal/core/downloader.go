package core

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"ocmods/internal/domain"
)

// DownloadProgress represents the current state of a download
type DownloadProgress struct {
	TotalBytes int64   // Total size in bytes (0 if unknown)
	Downloaded int64   // Bytes downloaded so far
	Percentage float64 // Completion percentage (0-100)
}

// ProgressFunc is called periodically during download with progress updates
type ProgressFunc func(DownloadProgress)

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path     string // Final file path
	Size     int64  // Bytes downloaded
	Checksum string // SHA-1 of the downloaded body
}

// Downloader handles HTTP file downloads with progress tracking
type Downloader struct {
	httpClient *http.Client
	userAgent  string
}

// NewDownloader creates a new Downloader with the given HTTP client
// If httpClient is nil, http.DefaultClient is used
func NewDownloader(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{
		httpClient: httpClient,
	}
}

// SetUserAgent sets the User-Agent header for downloads
func (d *Downloader) SetUserAgent(ua string) {
	d.userAgent = ua
}

// Download fetches url into destPath. The body is written to a temporary file
// that replaces destPath only after the transfer completed. Network failures wrap
// domain.ErrTransport, local write failures wrap domain.ErrFilesystem.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", domain.ErrInvalidServer, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP error: %s", domain.ErrTransport, resp.Status)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating directory: %w", domain.ErrFilesystem, err)
	}

	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("%w: creating file: %w", domain.ErrFilesystem, err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath) // no-op after a successful rename
	}()

	hasher := sha1.New()
	reader := &progressReader{
		reader:     resp.Body,
		totalBytes: resp.ContentLength,
		progressFn: progressFn,
	}

	written, err := io.Copy(file, io.TeeReader(reader, hasher))
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			return nil, fmt.Errorf("downloading file: %w", err)
		}
		return nil, fmt.Errorf("%w: writing file: %w", domain.ErrFilesystem, err)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing file: %w", domain.ErrFilesystem, err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("%w: renaming file: %w", domain.ErrFilesystem, err)
	}

	return &DownloadResult{
		Path:     destPath,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// progressReader wraps an io.Reader to track download progress
type progressReader struct {
	reader     io.Reader
	totalBytes int64
	downloaded int64
	progressFn ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.progressFn != nil {
			progress := DownloadProgress{
				TotalBytes: r.totalBytes,
				Downloaded: r.downloaded,
			}
			if r.totalBytes > 0 {
				progress.Percentage = float64(r.downloaded) / float64(r.totalBytes) * 100
			}
			r.progressFn(progress)
		}
	}
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: reading body: %w", domain.ErrTransport, err)
	}
	return n, err
}

// Transfer is a download running in the background
type Transfer struct {
	cancel context.CancelFunc
	done   chan struct{}

	downloaded atomic.Int64

	// written before done is closed
	result *DownloadResult
	err    error
}

// Start runs Download in a goroutine and returns immediately
func (d *Downloader) Start(ctx context.Context, url, destPath string) *Transfer {
	ctx, cancel := context.WithCancel(ctx)
	t := &Transfer{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()
		t.result, t.err = d.Download(ctx, url, destPath, func(p DownloadProgress) {
			t.downloaded.Store(p.Downloaded)
		})
	}()

	return t
}

// Done is closed when the transfer finished
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Finished reports whether the transfer ended, successfully or not
func (t *Transfer) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Downloaded returns the bytes received so far
func (t *Transfer) Downloaded() int64 {
	return t.downloaded.Load()
}

// Result returns the outcome of a finished transfer
func (t *Transfer) Result() (*DownloadResult, error) {
	if !t.Finished() {
		return nil, errors.New("transfer still running")
	}
	return t.result, t.err
}

// Cancel aborts the transfer and waits until its connection and temp file are released
func (t *Transfer) Cancel() {
	t.cancel()
	<-t.done
}
