package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"
	"ocmods/internal/storage/modsdir"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Stage is a state of the acquisition pipeline
type Stage int

const (
	StageIdle Stage = iota
	StageMetadataRefresh
	StageAwaitLocalDiscovery
	StageChecksumVerification
	StageAwaitChecksums
	StageConfirmationPending
	StageDownloading
	StageCommitting
	StageDone
	StageError
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageMetadataRefresh:
		return "metadata-refresh"
	case StageAwaitLocalDiscovery:
		return "await-local-discovery"
	case StageChecksumVerification:
		return "checksum-verification"
	case StageAwaitChecksums:
		return "await-checksums"
	case StageConfirmationPending:
		return "confirmation-pending"
	case StageDownloading:
		return "downloading"
	case StageCommitting:
		return "committing"
	case StageDone:
		return "done"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Finished reports whether the stage ends a run
func (s Stage) Finished() bool {
	return s == StageIdle || s == StageDone || s == StageError
}

// InstallRecorder persists successful installs
type InstallRecorder interface {
	SaveInstall(rec domain.ModRecord, installPath string) error
}

// PipelineConfig holds the collaborators of a Pipeline
type PipelineConfig struct {
	Catalog         *catalog.Client // Owned by the pipeline; one request at a time
	Registry        *modsdir.Registry
	ModsDir         *modsdir.Dir
	Downloader      *Downloader
	Recorder        InstallRecorder // Optional
	Logger          *log.Logger     // Optional
	ChecksumWorkers int
}

// Confirmation is what the user is asked to approve before downloading
type Confirmation struct {
	Names        []string
	TotalBytes   int64
	SizeEstimate string
}

// Message returns the confirmation question
func (c Confirmation) Message() string {
	quoted := make([]string, len(c.Names))
	for i, n := range c.Names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("Install %s (%s)?", strings.Join(quoted, ", "), c.SizeEstimate)
}

// SizeEstimate renders a byte count as "< 1 MB" or "~ N MB" with N rounded to whole megabytes
func SizeEstimate(totalBytes int64) string {
	mb := (totalBytes/1000 + 500) / 1000
	if mb == 0 {
		return "< 1 MB"
	}
	return "~ " + humanize.Comma(mb) + " MB"
}

// Result summarizes a finished run
type Result struct {
	Installed []domain.Installation
	Errors    []error
	Message   string // All item errors, one per line
}

// Pipeline acquires mods: it refreshes metadata, checks local copies, asks for
// confirmation, downloads missing files and records the installation. All work is
// driven by Advance, which never blocks; a Pipeline must only be used from the
// goroutine that calls Advance.
type Pipeline struct {
	cfg PipelineConfig
	log *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	stage  Stage
	items  []*Item
	status string
	err    error
	result *Result

	metaReq    *catalog.Request
	metaItem   *Item
	metaCursor int

	checksums    *checksumRun
	confirmation *Confirmation
	transfer     *Transfer
	transferItem *Item
	transferFile domain.FileEntry
}

// NewPipeline creates an idle pipeline
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.ChecksumWorkers <= 0 {
		cfg.ChecksumWorkers = 4
	}
	if cfg.Downloader == nil {
		cfg.Downloader = NewDownloader(cfg.Catalog.HTTPClient())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{
		cfg:   cfg,
		log:   logger.WithPrefix("pipeline"),
		stage: StageIdle,
	}
}

// Start begins a run for the given records. A running run is cancelled first.
func (p *Pipeline) Start(ctx context.Context, records ...domain.ModRecord) error {
	if len(records) == 0 {
		return errors.New("nothing to install")
	}
	p.Cancel()

	for _, rec := range records {
		if p.find(rec.ID) != nil || rec.ID == "" {
			continue
		}
		p.items = append(p.items, newItem(rec))
	}
	// Records that are already complete never pass through the refresh, queue their dependencies now
	for _, rec := range records {
		if !rec.RequiresUpdate() {
			p.enqueueDependencies(rec)
		}
	}
	p.begin(ctx)
	return nil
}

// StartIDs begins a run for mods known only by id
func (p *Pipeline) StartIDs(ctx context.Context, reqs ...domain.ModRequest) error {
	records := make([]domain.ModRecord, 0, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = domain.UnknownModName
		}
		records = append(records, domain.ModRecord{ID: id, Title: name, Source: domain.SourceLocal})
	}
	return p.Start(ctx, records...)
}

// AddToQueue adds a mod by id unless it is already queued. Returns true if added.
func (p *Pipeline) AddToQueue(id, name string) bool {
	if id == "" || p.find(id) != nil {
		return false
	}
	p.items = append(p.items, newItem(domain.ModRecord{ID: id, Title: name, Source: domain.SourceLocal}))
	return true
}

func (p *Pipeline) begin(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.metaCursor = -1
	p.cfg.Registry.StartScan()
	p.setStage(StageMetadataRefresh)
	p.log.Debug("run started", "mods", len(p.items))
}

// Advance performs the next step of the run and returns the resulting stage
func (p *Pipeline) Advance() Stage {
	if p.ctx != nil && p.ctx.Err() != nil && !p.stage.Finished() {
		p.fail(fmt.Errorf("%w: %v", domain.ErrCancelled, p.ctx.Err()))
		return p.stage
	}

	switch p.stage {
	case StageMetadataRefresh:
		p.refreshMetadata()
	case StageAwaitLocalDiscovery:
		p.awaitDiscovery()
	case StageChecksumVerification:
		p.startChecksums()
	case StageAwaitChecksums:
		p.collectChecksums()
	case StageConfirmationPending:
		// waiting for Confirm
	case StageDownloading:
		p.download()
	case StageCommitting:
		p.commit()
	}
	return p.stage
}

// Confirm answers the confirmation question. Declining cancels the run.
func (p *Pipeline) Confirm(accept bool) {
	if p.stage != StageConfirmationPending {
		return
	}
	if !accept {
		p.log.Info("installation declined")
		p.Cancel()
		return
	}
	for _, it := range p.items {
		if it.Err == nil {
			it.TotalBytes = it.RemainingBytes()
		}
	}
	p.setStage(StageDownloading)
}

// Cancel stops the run, releasing any request, transfer and checksum workers
// before it returns. The pipeline is Idle afterwards.
func (p *Pipeline) Cancel() {
	if p.metaReq != nil {
		p.metaReq.Cancel()
		p.metaReq, p.metaItem = nil, nil
	}
	if p.transfer != nil {
		p.transfer.Cancel()
		p.transfer, p.transferItem = nil, nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.checksums != nil {
		p.checksums.wait()
		p.checksums = nil
	}
	p.ctx, p.cancel = nil, nil
	p.items = nil
	p.confirmation = nil
	p.result = nil
	p.err = nil
	p.stage = StageIdle
	p.status = ""
}

// Stage returns the current stage
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Status describes the current activity
func (p *Pipeline) Status() string {
	return p.status
}

// Err returns the run-level error once the pipeline is in StageError
func (p *Pipeline) Err() error {
	return p.err
}

// Result returns the summary of a run that reached StageDone
func (p *Pipeline) Result() *Result {
	return p.result
}

// Confirmation returns the pending question, or nil
func (p *Pipeline) Confirmation() *Confirmation {
	if p.stage != StageConfirmationPending {
		return nil
	}
	return p.confirmation
}

// Items returns copies of the queued items in queue order
func (p *Pipeline) Items() []Item {
	items := make([]Item, len(p.items))
	for i, it := range p.items {
		items[i] = it.snapshot()
	}
	return items
}

// Progress returns downloaded and total bytes of the confirmed run
func (p *Pipeline) Progress() (done, total int64) {
	for _, it := range p.items {
		done += it.DownloadedBytes
		total += it.TotalBytes
	}
	if p.transfer != nil {
		done += p.transfer.Downloaded()
	}
	return done, total
}

func (p *Pipeline) setStage(s Stage) {
	p.log.Debug("stage", "from", p.stage, "to", s)
	p.stage = s

	switch s {
	case StageMetadataRefresh:
		p.status = "Updating metadata"
	case StageAwaitLocalDiscovery:
		p.status = "Waiting for local mod discovery"
	case StageAwaitChecksums:
		p.status = "Checking local files"
	case StageConfirmationPending:
		p.prepareConfirmation()
	case StageDownloading:
		p.status = "Downloading"
	case StageCommitting:
		p.status = "Installing"
	}
}

// fail aborts the run with a run-level error
func (p *Pipeline) fail(err error) {
	if p.metaReq != nil {
		p.metaReq.Cancel()
		p.metaReq, p.metaItem = nil, nil
	}
	if p.transfer != nil {
		p.transfer.Cancel()
		p.transfer, p.transferItem = nil, nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.checksums != nil {
		p.checksums.wait()
		p.checksums = nil
	}
	p.err = err
	p.stage = StageError
	p.status = err.Error()
	if errors.Is(err, domain.ErrNothingToDo) {
		p.log.Info("nothing to install", "reason", err)
	} else {
		p.log.Error("run aborted", "error", err)
	}
}

func (p *Pipeline) find(id string) *Item {
	for _, it := range p.items {
		if it.ID() == id {
			return it
		}
	}
	return nil
}

func (p *Pipeline) enqueueDependencies(rec domain.ModRecord) {
	for _, dep := range rec.Dependencies {
		if p.AddToQueue(dep, dep) {
			p.log.Debug("queued dependency", "mod", rec.ID, "dependency", dep)
		}
	}
}

// refreshMetadata fetches per-mod metadata for one item per request
func (p *Pipeline) refreshMetadata() {
	if p.metaReq != nil {
		if p.metaReq.Busy() {
			return
		}
		req, item := p.metaReq, p.metaItem
		p.metaReq, p.metaItem = nil, nil
		p.applyMetadata(req, item)
		return
	}

	for i := p.metaCursor + 1; i < len(p.items); i++ {
		it := p.items[i]
		if !it.RequiresUpdate() || it.Err != nil {
			continue
		}

		req, err := p.cfg.Catalog.Lookup(p.ctx, it.ID())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidServer) {
				p.fail(err)
				return
			}
			it.fail(fmt.Errorf("updating metadata: %w", err))
			continue
		}

		p.metaCursor = i
		p.metaReq, p.metaItem = req, it
		p.status = fmt.Sprintf("Updating metadata of %s", it.Name())
		return
	}

	p.setStage(StageAwaitLocalDiscovery)
}

func (p *Pipeline) applyMetadata(req *catalog.Request, item *Item) {
	if err := req.Err(); err != nil {
		if errors.Is(err, domain.ErrParse) || errors.Is(err, domain.ErrProtocolMismatch) || errors.Is(err, domain.ErrInvalidServer) {
			p.fail(fmt.Errorf("updating metadata of %s: %w", item.Name(), err))
			return
		}
		p.log.Warn("metadata update failed", "mod", item.ID(), "error", err)
		item.fail(fmt.Errorf("updating metadata: %w", err))
		return
	}

	rec := req.Result().Root.Record(domain.SourceDetailView)
	if rec.ID == "" {
		item.fail(fmt.Errorf("updating metadata: %w: empty response", domain.ErrModNotFound))
		return
	}

	target := p.find(rec.ID)
	if target == nil {
		p.fail(fmt.Errorf("%w: received metadata for %s which was not requested", domain.ErrProtocolMismatch, rec.ID))
		return
	}

	target.setRecord(rec)
	if target != item {
		item.fail(fmt.Errorf("updating metadata: %w: server answered with mod %s", domain.ErrProtocolMismatch, rec.ID))
	}
	p.enqueueDependencies(rec)
}

func (p *Pipeline) awaitDiscovery() {
	if !p.cfg.Registry.ScanComplete() {
		return
	}

	for _, it := range p.items {
		if it.LocalResolved {
			continue
		}
		it.LocalResolved = true
		info, ok := p.cfg.Registry.Get(it.ID())
		it.Installed = ok
		it.BasePath = info.Path
		if ok {
			for _, f := range it.Remaining {
				if f.HasChecksum() {
					it.NeedsCheck = true
					break
				}
			}
		}
	}

	for _, dep := range UnresolvedDependencies(p.items) {
		p.log.Warn("dependency could not be resolved", "error", dep)
	}

	p.setStage(StageChecksumVerification)
}

func (p *Pipeline) startChecksums() {
	var jobs []checksumJob
	for i, it := range p.items {
		if it.Err != nil || !it.NeedsCheck {
			continue
		}
		jobs = append(jobs, checksumJob{
			index: i,
			dir:   it.BasePath,
			files: append([]domain.FileEntry(nil), it.Remaining...),
		})
	}

	if len(jobs) == 0 {
		p.setStage(StageConfirmationPending)
		return
	}

	p.checksums = startChecksumRun(p.ctx, jobs, p.cfg.ChecksumWorkers)
	p.setStage(StageAwaitChecksums)
}

func (p *Pipeline) collectChecksums() {
	for {
		select {
		case res := <-p.checksums.results:
			it := p.items[res.index]
			it.Remaining = res.remaining
			it.NeedsCheck = false
			if res.anyExisted {
				it.AnyFileExisted = true
			}
			p.checksums.pending--
			p.log.Debug("checked local files", "mod", it.ID(), "remaining", len(res.remaining))
		default:
			if p.checksums.pending == 0 {
				p.checksums.wait()
				p.checksums = nil
				p.setStage(StageConfirmationPending)
			}
			return
		}
	}
}

func (p *Pipeline) prepareConfirmation() {
	var total int64
	var names []string
	var details []string
	anyExisted := false

	for _, it := range p.items {
		if it.AnyFileExisted {
			anyExisted = true
		}
		if it.Err != nil {
			details = append(details, fmt.Sprintf("%s: %v", it.Name(), it.Err))
			continue
		}
		if len(it.Remaining) > 0 {
			names = append(names, it.Name())
			total += it.RemainingBytes()
		}
	}

	if total == 0 {
		p.fail(&domain.NothingToDoError{AlreadyInstalled: anyExisted, Details: details})
		return
	}

	p.confirmation = &Confirmation{
		Names:        names,
		TotalBytes:   total,
		SizeEstimate: SizeEstimate(total),
	}
	p.status = p.confirmation.Message()
}

// download moves one file at a time through the Downloader
func (p *Pipeline) download() {
	if p.transfer != nil {
		if !p.transfer.Finished() {
			return
		}
		p.finishTransfer()
		return
	}

	var next *Item
	for _, it := range p.items {
		if it.Err == nil && len(it.Remaining) > 0 {
			next = it
			break
		}
	}
	if next == nil {
		p.setStage(StageCommitting)
		return
	}

	file := next.Remaining[0]
	modPath, err := p.installPath(next)
	if err != nil {
		next.fail(fmt.Errorf("%w: %w", domain.ErrFilesystem, err))
		return
	}
	dest, err := modsdir.FilePath(modPath, file.Name)
	if err != nil {
		next.fail(fmt.Errorf("%w: %w", domain.ErrFilesystem, err))
		return
	}
	fileURL, err := p.cfg.Catalog.FileURL(file.Handle)
	if err != nil {
		p.fail(err)
		return
	}

	p.transfer = p.cfg.Downloader.Start(p.ctx, fileURL, dest)
	p.transferItem, p.transferFile = next, file
	p.status = fmt.Sprintf("Downloading %s (%s)", file.Name, next.Name())
	p.log.Debug("downloading", "mod", next.ID(), "file", file.Name, "url", fileURL)
}

func (p *Pipeline) finishTransfer() {
	res, err := p.transfer.Result()
	it, file := p.transferItem, p.transferFile
	p.transfer, p.transferItem = nil, nil

	if err != nil {
		p.log.Warn("download failed", "mod", it.ID(), "file", file.Name, "error", err)
		it.fail(fmt.Errorf("downloading %s: %w", file.Name, err))
		return
	}

	if file.HasChecksum() && !strings.EqualFold(res.Checksum, file.SHA1) {
		p.log.Warn("checksum mismatch after download", "mod", it.ID(), "file", file.Name,
			"expected", file.SHA1, "actual", res.Checksum)
	}

	it.Remaining = it.Remaining[1:]
	it.DownloadedBytes += res.Size
	it.DownloadedFiles++
}

// commit writes metadata and removes stale files of completed items
func (p *Pipeline) commit() {
	for _, it := range p.items {
		if it.Err != nil || len(it.Remaining) > 0 {
			continue
		}
		if it.DownloadedFiles == 0 {
			// Everything on disk already matched
			it.Successful = it.Installed
			continue
		}

		path, err := p.installPath(it)
		if err != nil {
			it.fail(fmt.Errorf("%w: %w", domain.ErrFilesystem, err))
			continue
		}
		if err := modsdir.WriteMetadata(path, catalog.MarshalRecord(it.Record)); err != nil {
			it.fail(fmt.Errorf("%w: %w", domain.ErrFilesystem, err))
			continue
		}
		it.Successful = true

		removed, err := modsdir.Sweep(path, it.Record.FileNames())
		if err != nil {
			p.log.Warn("removing stale files", "mod", it.ID(), "error", err)
		}
		for _, name := range removed {
			p.log.Info("removed stale file", "mod", it.ID(), "file", name)
		}
	}

	p.finish()
}

func (p *Pipeline) finish() {
	result := &Result{}
	var lines []string

	for _, it := range p.items {
		if path, err := p.installPath(it); it.Successful && err == nil {
			name := it.Record.Title
			if _, leafName, ok := modsdir.ParseEntryName(filepath.Base(path)); ok {
				name = leafName
			}
			p.cfg.Registry.AddMod(it.ID(), path, name)
			if p.cfg.Recorder != nil {
				if err := p.cfg.Recorder.SaveInstall(it.Record, path); err != nil {
					p.log.Warn("recording install", "mod", it.ID(), "error", err)
				}
			}
			result.Installed = append(result.Installed, domain.Installation{Record: it.Record, Path: path})
		}
		if it.Err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", it.Name(), it.Err))
			lines = append(lines, fmt.Sprintf("%s: %v", it.Name(), it.Err))
		}
	}
	result.Message = strings.Join(lines, "\n")

	if p.cancel != nil {
		p.cancel()
	}
	p.result = result
	p.stage = StageDone
	p.status = fmt.Sprintf("Installed %d mod(s)", len(result.Installed))
	p.log.Info("run finished", "installed", len(result.Installed), "errors", len(result.Errors))
}

// installPath keeps existing installs in place, new mods go to "<id>_<slug>"
func (p *Pipeline) installPath(it *Item) (string, error) {
	if it.Installed && it.BasePath != "" {
		return it.BasePath, nil
	}
	return p.cfg.ModsDir.ModPath(it.ID(), it.Record.Slug)
}
