package catalog

import (
	"bytes"
	"strconv"
	"strings"

	"ocmods/internal/domain"
)

// RootElement is the name every catalog response document must use for its root
const RootElement = "root"

// Meta is the pagination block of a search response
type Meta struct {
	Total int
	Skip  int
}

// File is a files/item element
type File struct {
	Handle   string `xml:"id"`
	Filename string `xml:"filename"`
	Length   string `xml:"length"`
	SHA1     string `xml:"sha1"`
}

// Item is one mod element, either a resources/item of a search or the root of a lookup
type Item struct {
	ID              string   `xml:"id"`
	Title           string   `xml:"title"`
	Slug            string   `xml:"slug"`
	Description     string   `xml:"description"`
	LongDescription string   `xml:"long_description"`
	UpdatedAt       string   `xml:"updatedAt"`
	Author          string   `xml:"author"`
	Dependencies    []string `xml:"dependencies>item"`
	Tags            []string `xml:"tags>item"`
	Files           []File   `xml:"files>item"`

	// Inner holds the element's children verbatim
	Inner []byte `xml:",innerxml"`
}

// Empty returns true for elements without any content
func (it Item) Empty() bool {
	return len(bytes.TrimSpace(it.Inner)) == 0
}

// Record converts the element into a domain record
func (it Item) Record(source domain.Source) domain.ModRecord {
	rec := domain.ModRecord{
		ID:              strings.TrimSpace(it.ID),
		Title:           it.Title,
		Slug:            it.Slug,
		Description:     domain.TruncateDescription(it.Description),
		LongDescription: it.LongDescription,
		UpdatedAt:       it.UpdatedAt,
		Author:          it.Author,
		Source:          source,
		Metadata:        append([]byte(nil), it.Inner...),
	}
	if rec.Slug == "" {
		rec.Slug = rec.Title
	}

	for _, dep := range it.Dependencies {
		if dep = strings.TrimSpace(dep); dep != "" {
			rec.Dependencies = append(rec.Dependencies, dep)
		}
	}
	for _, tag := range it.Tags {
		if tag != "" {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	for _, f := range it.Files {
		entry, ok := f.entry()
		if !ok {
			continue
		}
		rec.Files = append(rec.Files, entry)
	}

	return rec
}

// entry validates a file element; files without handle, name or a numeric length are unusable
func (f File) entry() (domain.FileEntry, bool) {
	handle := strings.TrimSpace(f.Handle)
	length := strings.TrimSpace(f.Length)
	if handle == "" || f.Filename == "" || length == "" {
		return domain.FileEntry{}, false
	}
	size, err := strconv.ParseInt(length, 10, 64)
	if err != nil || size < 0 {
		return domain.FileEntry{}, false
	}
	return domain.FileEntry{
		Handle: handle,
		Name:   f.Filename,
		Size:   size,
		SHA1:   strings.TrimSpace(f.SHA1),
	}, true
}
