package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ocmods/internal/storage/modsdir"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const castleXML = `<id>42</id><title>Castle Siege</title><slug>castle-siege</slug><author>Sven</author>` +
	`<updatedAt>2024-05-01T10:00:00Z</updatedAt><tags><item>openclonk-9</item><item>melee</item></tags>` +
	`<dependencies></dependencies>` +
	`<files><item><id>h42</id><filename>Castle.ocd</filename><length>5</length>` +
	`<sha1>aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d</sha1></item></files>`

// fakeCatalog serves a single mod "Castle Siege" (id 42) with one file containing "hello"
type fakeCatalog struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/uploads":
			f.mu.Lock()
			f.queries = append(f.queries, r.URL.RawQuery)
			f.mu.Unlock()
			w.Write([]byte(`<root><meta><total>1</total><skip>0</skip></meta><resources><item>` + castleXML + `</item></resources></root>`))
		case "/api/uploads/42":
			w.Write([]byte(`<root>` + castleXML + `</root>`))
		case "/api/files/h42":
			w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeCatalog) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

// setupDirs points the global flags at temporary directories and resets all
// command flags afterwards. Returns the mods directory.
func setupDirs(t *testing.T, server string) string {
	t.Helper()
	configDir = t.TempDir()
	dataDir = t.TempDir()
	modsDir = t.TempDir()
	serverURL = server
	configFile = ""
	noColor = true
	jsonOutput = false
	verbose = false

	t.Cleanup(func() {
		configDir, dataDir, modsDir, serverURL, configFile = "", "", "", "", ""
		noColor, jsonOutput, verbose = false, false, false
		installYes, updateYes, updateCheck, uninstallYes = false, false, false, false
		searchTags, searchSort, searchLimit, searchPage = nil, "", 0, 1
		searchCompatible, searchPlayable = true, false
		listFilter = ""
	})
	return modsDir
}

// execute runs sub as a child of a fresh root command
func execute(t *testing.T, sub *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.AddCommand(sub)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// writeInstalled creates an installed mod directory with a resource.xml built from inner
func writeInstalled(t *testing.T, root, leaf, inner string) string {
	t.Helper()
	path := filepath.Join(root, leaf)
	require.NoError(t, modsdir.WriteMetadata(path, []byte(`<root>`+inner+`</root>`)))
	return path
}

// writeBareDir creates a mod directory without resource.xml
func writeBareDir(root, leaf string) error {
	return os.MkdirAll(filepath.Join(root, leaf), 0755)
}
