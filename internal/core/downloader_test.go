package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download_ReturnsChecksum(t *testing.T) {
	content := []byte("test file content for checksum")
	// SHA-1 of "test file content for checksum"
	expectedChecksum := "74d8ec60316c207db43934d4735fb2cbc98ad583"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	destPath := filepath.Join(t.TempDir(), "test.ocd")

	result, err := downloader.Download(context.Background(), server.URL, destPath, nil)
	require.NoError(t, err)

	assert.Equal(t, destPath, result.Path)
	assert.Equal(t, int64(len(content)), result.Size)
	assert.Equal(t, expectedChecksum, result.Checksum)
}

func TestDownloader_Download_ProgressTracking(t *testing.T) {
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 256)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write(content)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	destPath := filepath.Join(t.TempDir(), "test.bin")

	var lastProgress core.DownloadProgress
	progressFn := func(p core.DownloadProgress) {
		lastProgress = p
	}

	_, err := downloader.Download(context.Background(), server.URL, destPath, progressFn)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), lastProgress.TotalBytes)
	assert.Equal(t, int64(1000), lastProgress.Downloaded)
	assert.InDelta(t, 100.0, lastProgress.Percentage, 0.1)
}

func TestDownloader_Download_CreatesDirectories(t *testing.T) {
	content := []byte("test content")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	destPath := filepath.Join(t.TempDir(), "nested", "dir", "test.ocs")

	_, err := downloader.Download(context.Background(), server.URL, destPath, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestDownloader_Download_HTTPErrorKeepsExistingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test.ocd")
	require.NoError(t, os.WriteFile(destPath, []byte("old"), 0644))

	_, err := core.NewDownloader(nil).Download(context.Background(), server.URL, destPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "500")

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.NoFileExists(t, destPath+".tmp")
}

func TestDownloader_Download_FilesystemError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	// A regular file where the parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := core.NewDownloader(nil).Download(context.Background(), server.URL, filepath.Join(blocker, "x.ocd"), nil)
	assert.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestDownloader_Download_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("never read"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.NewDownloader(nil).Download(ctx, server.URL, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestDownloader_SetUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ocmods-test", r.Header.Get("User-Agent"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	downloader.SetUserAgent("ocmods-test")

	_, err := downloader.Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "x"), nil)
	require.NoError(t, err)
}

func TestTransfer_Completes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "hello.ocd")
	tr := core.NewDownloader(nil).Start(context.Background(), server.URL, dest)

	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not finish")
	}

	assert.True(t, tr.Finished())
	assert.FileExists(t, dest)
	assert.Equal(t, int64(5), tr.Downloaded())

	res, err := tr.Result()
	require.NoError(t, err)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", res.Checksum)
}

func TestTransfer_Cancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write(make([]byte, 1000))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "big.ocd")
	tr := core.NewDownloader(nil).Start(context.Background(), server.URL, dest)

	_, err := tr.Result()
	assert.Error(t, err, "result of a running transfer")

	tr.Cancel()
	assert.True(t, tr.Finished())

	_, err = tr.Result()
	assert.Error(t, err)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".tmp")
}
