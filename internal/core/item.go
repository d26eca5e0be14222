package core

import (
	"ocmods/internal/domain"
)

// Item is one mod in an acquisition run
type Item struct {
	Record    domain.ModRecord
	Remaining []domain.FileEntry // Files still to download, in order

	// Local state, resolved once discovery finished
	LocalResolved  bool
	Installed      bool
	BasePath       string // Install directory of the existing copy
	NeedsCheck     bool
	AnyFileExisted bool // At least one declared file matched on disk

	TotalBytes      int64 // Bytes to download, fixed when the run is confirmed
	DownloadedBytes int64 // Bytes of completed files
	DownloadedFiles int

	Successful bool
	Err        error
}

func newItem(rec domain.ModRecord) *Item {
	it := &Item{}
	it.setRecord(rec)
	return it
}

// ID returns the mod id
func (it *Item) ID() string {
	return it.Record.ID
}

// Name returns the display name
func (it *Item) Name() string {
	return it.Record.DisplayName()
}

// RequiresUpdate reports whether the per-mod metadata still has to be fetched
func (it *Item) RequiresUpdate() bool {
	return it.Record.RequiresUpdate()
}

// RemainingBytes sums the sizes of files still to download
func (it *Item) RemainingBytes() int64 {
	var total int64
	for _, f := range it.Remaining {
		total += f.Size
	}
	return total
}

func (it *Item) setRecord(rec domain.ModRecord) {
	it.Record = rec
	it.Remaining = append([]domain.FileEntry(nil), rec.Files...)
}

func (it *Item) fail(err error) {
	if it.Err == nil {
		it.Err = err
	}
}

// snapshot returns a copy that shares no slices with the item
func (it *Item) snapshot() Item {
	c := *it
	c.Record = it.Record.Clone()
	c.Remaining = append([]domain.FileEntry(nil), it.Remaining...)
	return c
}
