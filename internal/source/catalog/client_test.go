package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, r *catalog.Request) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish")
	}
}

func TestSearchQuery_Encode(t *testing.T) {
	q := catalog.SearchQuery{
		Text:       "castle siege",
		Tags:       []string{"openclonk-9", ".scenario"},
		Sort:       catalog.SortUpdated,
		Descending: true,
		Limit:      20,
		Skip:       40,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/uploads", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, `"castle siege"`, query.Get("q"))
		assert.Equal(t, "openclonk-9,.scenario", query.Get("tags"))
		assert.Equal(t, "-updatedAt", query.Get("sort"))
		assert.Equal(t, "20", query.Get("limit"))
		assert.Equal(t, "40", query.Get("skip"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<root><meta><total>0</total><skip>40</skip></meta><resources/></root>`))
	}))
	defer server.Close()

	client := catalog.NewClient(server.Client(), server.URL+"/api")
	client.SetUserAgent("test-agent")

	req, err := client.Search(context.Background(), q)
	require.NoError(t, err)
	waitDone(t, req)

	require.True(t, req.Success(), "error: %v", req.Err())
	assert.Equal(t, 0, req.Result().Meta.Total)
	assert.Empty(t, req.Result().Items)
}

func TestSearchQuery_EncodeMinimal(t *testing.T) {
	assert.Equal(t, "skip=0", catalog.SearchQuery{}.Encode())
}

func TestParseSortKey(t *testing.T) {
	key, desc, err := catalog.ParseSortKey("-title")
	require.NoError(t, err)
	assert.Equal(t, catalog.SortTitle, key)
	assert.True(t, desc)

	key, desc, err = catalog.ParseSortKey("updatedAt")
	require.NoError(t, err)
	assert.Equal(t, catalog.SortUpdated, key)
	assert.False(t, desc)

	_, _, err = catalog.ParseSortKey("downloads")
	assert.Error(t, err)
}

func TestClient_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uploads/77", r.URL.Path)
		_, _ = w.Write([]byte(`<root><id>77</id><title>Rockets</title></root>`))
	}))
	defer server.Close()

	client := catalog.NewClient(server.Client(), server.URL)
	req, err := client.Lookup(context.Background(), "77")
	require.NoError(t, err)

	doc, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "77", doc.Root.ID)
	assert.False(t, client.Busy())
}

func TestClient_InvalidServer(t *testing.T) {
	for _, base := range []string{"", "not a url", "ftp://example.com/", "http://"} {
		client := catalog.NewClient(nil, base)
		_, err := client.Lookup(context.Background(), "1")
		assert.ErrorIs(t, err, domain.ErrInvalidServer, "base %q", base)
	}
}

func TestClient_OneRequestAtATime(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`<root><id>1</id></root>`))
	}))
	defer server.Close()

	client := catalog.NewClient(server.Client(), server.URL)

	first, err := client.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, first.Busy())
	assert.Nil(t, first.Result())
	assert.NoError(t, first.Err())

	_, err = client.Lookup(context.Background(), "2")
	assert.ErrorIs(t, err, domain.ErrRequestOutstanding)

	close(release)
	waitDone(t, first)
	assert.True(t, first.Success())

	second, err := client.Lookup(context.Background(), "2")
	require.NoError(t, err)
	waitDone(t, second)
}

func TestClient_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := catalog.NewClient(server.Client(), server.URL)
	req, err := client.Lookup(context.Background(), "1")
	require.NoError(t, err)

	client.Cancel()

	assert.False(t, req.Busy(), "cancel returns after the request released")
	assert.ErrorIs(t, req.Err(), domain.ErrTransport)
	assert.False(t, client.Busy())
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, "", domain.ErrModNotFound},
		{"server error", http.StatusInternalServerError, "oops", domain.ErrTransport},
		{"malformed", http.StatusOK, "<root><id>", domain.ErrParse},
		{"wrong root", http.StatusOK, "<error>denied</error>", domain.ErrProtocolMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := catalog.NewClient(server.Client(), server.URL)
			req, err := client.Lookup(context.Background(), "1")
			require.NoError(t, err)
			waitDone(t, req)

			assert.False(t, req.Success())
			assert.ErrorIs(t, req.Err(), tt.wantErr)
			assert.Nil(t, req.Result())
		})
	}
}

func TestClient_FileURL(t *testing.T) {
	client := catalog.NewClient(nil, "https://mods.example.org/api")
	assert.Equal(t, "https://mods.example.org/api/", client.BaseURL())

	u, err := client.FileURL("abc 1")
	require.NoError(t, err)
	assert.Equal(t, "https://mods.example.org/api/files/abc%201", u)
}
