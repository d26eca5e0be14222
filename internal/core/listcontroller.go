package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"
	"ocmods/internal/storage/modsdir"

	"github.com/charmbracelet/log"
)

// ListState is the state of a ListController
type ListState int

const (
	ListIdle ListState = iota
	ListLoading
	ListLoaded
	ListNoResults
	ListFailed
	ListInstalled
)

// String returns the state name
func (s ListState) String() string {
	switch s {
	case ListIdle:
		return "idle"
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListNoResults:
		return "no-results"
	case ListFailed:
		return "failed"
	case ListInstalled:
		return "installed"
	default:
		return "unknown"
	}
}

// ListQuery is a user search
type ListQuery struct {
	Text       string
	Tags       []string
	Sort       catalog.SortKey
	Descending bool
	Compatible bool // Only mods tagged with the configured version tag
	Playable   bool // Only scenarios
}

// Entry is one row of the list
type Entry struct {
	Record    domain.ModRecord
	Installed bool
	LocalPath string
}

// DefaultRetryCooldown is used when no positive cooldown is configured
const DefaultRetryCooldown = 10 * time.Second

// ListControllerConfig holds the collaborators of a ListController
type ListControllerConfig struct {
	Catalog       *catalog.Client // Must not be shared with a Pipeline
	Registry      *modsdir.Registry
	PageSize      int
	RetryCooldown time.Duration
	VersionTag    string
	Logger        *log.Logger
	Now           func() time.Time // Defaults to time.Now
}

// ListController runs paginated catalog searches and annotates the results
// with local install state. Like Pipeline it is driven by Poll from one goroutine.
type ListController struct {
	cfg ListControllerConfig
	log *log.Logger

	ctx   context.Context
	query ListQuery
	skip  int
	total int

	req     *catalog.Request
	state   ListState
	message string
	entries []Entry

	annotated    bool
	retryPending bool
	failedAt     time.Time
}

// NewListController creates an idle controller
func NewListController(cfg ListControllerConfig) *ListController {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.RetryCooldown <= 0 {
		cfg.RetryCooldown = DefaultRetryCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ListController{
		cfg: cfg,
		log: logger.WithPrefix("list"),
		ctx: context.Background(),
	}
}

// Search starts the first page of a new query, replacing any running one
func (c *ListController) Search(ctx context.Context, q ListQuery) {
	c.Cancel()
	if ctx != nil {
		c.ctx = ctx
	}
	c.query = q
	c.skip = 0
	c.total = 0
	c.cfg.Registry.StartScan()
	c.start()
}

// NextPage loads the following page. Returns false if there is none.
func (c *ListController) NextPage() bool {
	if !c.HasNextPage() || c.state == ListLoading {
		return false
	}
	c.skip += c.cfg.PageSize
	c.start()
	return true
}

// PrevPage loads the preceding page. Returns false on the first page.
func (c *ListController) PrevPage() bool {
	if c.skip == 0 || c.state == ListLoading || c.state == ListInstalled {
		return false
	}
	c.skip = max(c.skip-c.cfg.PageSize, 0)
	c.start()
	return true
}

// Cancel aborts a running request and any pending retry
func (c *ListController) Cancel() {
	if c.req != nil {
		c.req.Cancel()
		c.req = nil
	}
	c.retryPending = false
	if c.state == ListLoading {
		c.state = ListIdle
	}
}

// Poll applies finished requests, starts due retries and annotates
// entries once the local scan is complete
func (c *ListController) Poll() ListState {
	applied := false
	if c.req != nil && !c.req.Busy() {
		req := c.req
		c.req = nil
		c.apply(req)
		applied = true
	}

	// A failure is reported for at least one poll before its retry starts
	if !applied && c.state == ListFailed && c.retryPending && c.cfg.Now().Sub(c.failedAt) >= c.cfg.RetryCooldown {
		c.retryPending = false
		c.log.Info("retrying search", "query", c.query.Text)
		c.start()
	}

	if !c.annotated && c.cfg.Registry.ScanComplete() {
		if c.state == ListInstalled {
			c.loadInstalled()
		} else {
			c.annotate()
		}
	}
	return c.state
}

func (c *ListController) searchQuery() catalog.SearchQuery {
	tags := append([]string(nil), c.query.Tags...)
	if c.query.Compatible && c.cfg.VersionTag != "" {
		tags = append(tags, c.cfg.VersionTag)
	}
	if c.query.Playable {
		tags = append(tags, domain.ScenarioTag)
	}
	return catalog.SearchQuery{
		Text:       c.query.Text,
		Tags:       tags,
		Sort:       c.query.Sort,
		Descending: c.query.Descending,
		Limit:      c.cfg.PageSize,
		Skip:       c.skip,
	}
}

func (c *ListController) start() {
	c.entries = nil
	c.annotated = false

	req, err := c.cfg.Catalog.Search(c.ctx, c.searchQuery())
	if err != nil {
		c.failed(err)
		return
	}
	c.req = req
	c.state = ListLoading
	c.message = "Loading..."
	c.log.Debug("search started", "url", req.URL())
}

func (c *ListController) failed(err error) {
	c.state = ListFailed
	c.message = err.Error()
	c.failedAt = c.cfg.Now()
	c.retryPending = !errors.Is(err, domain.ErrInvalidServer) && !errors.Is(err, context.Canceled)
	c.log.Warn("search failed", "error", err, "retry", c.retryPending)
}

func (c *ListController) apply(req *catalog.Request) {
	if err := req.Err(); err != nil {
		c.failed(err)
		return
	}

	doc := req.Result()
	c.total = doc.Meta.Total
	if !doc.HasMeta {
		c.total = c.skip + len(doc.Items)
	}
	if c.total == 0 || len(doc.Items) == 0 {
		c.state = ListNoResults
		c.message = "No mods found."
		return
	}

	for _, rec := range doc.Records(domain.SourceOverview) {
		c.entries = append(c.entries, Entry{Record: rec})
	}
	c.state = ListLoaded
	c.message = fmt.Sprintf("Page %d of %d", c.CurrentPage(), c.TotalPages())
	c.annotate()
}

// annotate marks installed entries; before the scan completed nothing is marked
func (c *ListController) annotate() {
	if !c.cfg.Registry.ScanComplete() {
		return
	}
	for i := range c.entries {
		info, ok := c.cfg.Registry.Get(c.entries[i].Record.ID)
		c.entries[i].Installed = ok
		c.entries[i].LocalPath = info.Path
	}
	c.annotated = true
}

// ShowInstalled switches to the list of installed mods
func (c *ListController) ShowInstalled() {
	c.Cancel()
	c.cfg.Registry.StartScan()
	c.state = ListInstalled
	c.entries = nil
	c.annotated = false
	c.message = "Scanning mods directory..."
	if c.cfg.Registry.ScanComplete() {
		c.loadInstalled()
	}
}

func (c *ListController) loadInstalled() {
	c.entries = InstalledEntries(c.cfg.Registry, c.log)
	c.annotated = true
	c.message = fmt.Sprintf("%d installed mod(s)", len(c.entries))
}

// InstalledEntries reads the sidecar of every registered mod. A missing or broken
// sidecar yields an entry with MetadataMissing set.
func InstalledEntries(registry *modsdir.Registry, logger *log.Logger) []Entry {
	infos := registry.GetAll()
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		rec, err := ReadInstalledRecord(info)
		if err != nil && logger != nil {
			logger.Debug("reading metadata", "mod", info.ID, "error", err)
		}
		entries = append(entries, Entry{Record: rec, Installed: true, LocalPath: info.Path})
	}
	return entries
}

// ReadInstalledRecord loads the resource.xml of an installed mod
func ReadInstalledRecord(info domain.LocalModInfo) (domain.ModRecord, error) {
	bare := domain.ModRecord{
		ID:              info.ID,
		Title:           info.Name,
		Slug:            info.Name,
		Source:          domain.SourceLocal,
		MetadataMissing: true,
	}

	data, err := modsdir.ReadMetadata(info.Path)
	if err != nil {
		return bare, err
	}
	rec, err := catalog.ParseRecord(data, domain.SourceLocal)
	if err != nil {
		return bare, err
	}
	if rec.ID == "" {
		return bare, fmt.Errorf("%w: %s has no id", domain.ErrParse, modsdir.MetadataFile)
	}
	return rec, nil
}

// SyncInstalled refreshes install state after the registry changed
func (c *ListController) SyncInstalled() {
	c.annotated = false
	if c.state == ListInstalled {
		if c.cfg.Registry.ScanComplete() {
			c.loadInstalled()
		}
		return
	}
	c.annotate()
}

// Install hands the entry at index to the pipeline
func (c *ListController) Install(index int, p *Pipeline) error {
	if index < 0 || index >= len(c.entries) {
		return fmt.Errorf("no entry at index %d", index)
	}
	return p.Start(c.ctx, c.entries[index].Record)
}

// InstallIDs hands a "-" separated list of mod ids to the pipeline
func (c *ListController) InstallIDs(ids string, p *Pipeline) error {
	reqs := ParseIDList(ids)
	if len(reqs) == 0 {
		return fmt.Errorf("%w: no mod ids in %q", domain.ErrModNotFound, ids)
	}
	return p.StartIDs(c.ctx, reqs...)
}

// ParseIDList splits "12-34-56" into mod requests with unknown names
func ParseIDList(ids string) []domain.ModRequest {
	var reqs []domain.ModRequest
	for _, id := range strings.Split(ids, "-") {
		if id = strings.TrimSpace(id); id != "" {
			reqs = append(reqs, domain.ModRequest{ID: id, Name: domain.UnknownModName})
		}
	}
	return reqs
}

// State returns the current state
func (c *ListController) State() ListState {
	return c.state
}

// Message describes the state for display
func (c *ListController) Message() string {
	return c.message
}

// Query returns the active query
func (c *ListController) Query() ListQuery {
	return c.query
}

// Entries returns a copy of the current rows
func (c *ListController) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Total returns the number of results reported by the server
func (c *ListController) Total() int {
	return c.total
}

// CurrentPage returns the 1-based page number
func (c *ListController) CurrentPage() int {
	return c.skip/c.cfg.PageSize + 1
}

// TotalPages returns the number of pages of the current query
func (c *ListController) TotalPages() int {
	if c.total <= 0 {
		return 0
	}
	return (c.total + c.cfg.PageSize - 1) / c.cfg.PageSize
}

// HasNextPage reports whether more results follow the current page
func (c *ListController) HasNextPage() bool {
	return c.state != ListInstalled && c.skip+c.cfg.PageSize < c.total
}
