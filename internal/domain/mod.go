package domain

import (
	"slices"
	"strings"
)

// MaxDescriptionLength is the number of characters kept from a short description
const MaxDescriptionLength = 150

// ScenarioTag marks uploads that contain a playable scenario
const ScenarioTag = ".scenario"

// ObjectsTag marks uploads that contain an object package
const ObjectsTag = ".objects"

// Source tells where a ModRecord's data came from
type Source int

const (
	SourceLocal      Source = iota // Parsed from an installed resource.xml
	SourceOverview                 // Entry of a search result page
	SourceDetailView               // Full per-mod metadata response
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceOverview:
		return "overview"
	case SourceDetailView:
		return "detail"
	default:
		return "unknown"
	}
}

// FileEntry is one downloadable file of a mod upload
type FileEntry struct {
	Handle string // Server-side file id used in the download URL
	Name   string // Filename on disk
	Size   int64  // Size in bytes
	SHA1   string // Hex digest, may be empty
}

// HasChecksum returns true if the entry declares a SHA-1 digest
func (f FileEntry) HasChecksum() bool {
	return f.SHA1 != ""
}

// ModRecord describes one mod upload as known to the catalog
type ModRecord struct {
	ID              string
	Slug            string
	Title           string
	Description     string // Truncated, see TruncateDescription
	LongDescription string
	Author          string
	UpdatedAt       string
	Tags            []string
	Dependencies    []string // Mod ids
	Files           []FileEntry
	Source          Source

	// Metadata is the raw inner XML of the element the record was parsed from.
	// It is written back verbatim as the installed resource.xml.
	Metadata []byte

	// MetadataMissing is set for installed mods whose resource.xml could not be read
	MetadataMissing bool
}

// Clone returns a deep copy of the record
func (r ModRecord) Clone() ModRecord {
	c := r
	c.Tags = slices.Clone(r.Tags)
	c.Dependencies = slices.Clone(r.Dependencies)
	c.Files = slices.Clone(r.Files)
	c.Metadata = slices.Clone(r.Metadata)
	return c
}

// RequiresUpdate returns true until the record was refreshed from the per-mod endpoint
func (r ModRecord) RequiresUpdate() bool {
	return r.Source != SourceDetailView
}

// HasTag reports whether the record carries the given tag
func (r ModRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsScenario returns true for playable uploads
func (r ModRecord) IsScenario() bool {
	return r.HasTag(ScenarioTag)
}

// IsObjectPackage returns true for uploads tagged as object packages
func (r ModRecord) IsObjectPackage() bool {
	return r.HasTag(ObjectsTag)
}

// FreeTags returns the user-facing tags; tags starting with '.' are reserved for classification
func (r ModRecord) FreeTags() []string {
	var tags []string
	for _, t := range r.Tags {
		if !strings.HasPrefix(t, ".") {
			tags = append(tags, t)
		}
	}
	return tags
}

// FileNames returns the declared filenames in order
func (r ModRecord) FileNames() []string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.Name)
	}
	return names
}

// TotalSize returns the sum of all declared file sizes
func (r ModRecord) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// DisplayName returns the title, falling back to the id
func (r ModRecord) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.ID
}

// DisplayAuthor returns the author or "???" when unknown
func (r ModRecord) DisplayAuthor() string {
	if r.Author != "" {
		return r.Author
	}
	return UnknownModName
}

// UpdatedDate returns the date part of UpdatedAt, or "/" if it is not a timestamp
func (r ModRecord) UpdatedDate() string {
	if i := strings.IndexByte(r.UpdatedAt, 'T'); r.UpdatedAt != "" && i >= 0 {
		return r.UpdatedAt[:i]
	}
	return "/"
}

// TruncateDescription cuts descriptions longer than MaxDescriptionLength bytes
// after MaxDescriptionLength characters. UTF-8 sequences are never split.
func TruncateDescription(s string) string {
	if len(s) <= MaxDescriptionLength {
		return s
	}
	count := 0
	for i := range s {
		if count == MaxDescriptionLength {
			return s[:i]
		}
		count++
	}
	return s
}

// LocalModInfo is an installed mod found in the mods directory
type LocalModInfo struct {
	ID   string
	Path string // Install directory
	Name string // Directory name suffix after "<id>_"
}

// ModRequest names a mod to acquire when no record is known yet
type ModRequest struct {
	ID   string
	Name string
}

// UnknownModName is shown for mods requested by id only
const UnknownModName = "???"
