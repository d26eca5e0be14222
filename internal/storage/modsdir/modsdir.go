// Package modsdir manages the on-disk layout of installed mods.
package modsdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MetadataFile is the sidecar written into every installed mod directory
const MetadataFile = "resource.xml"

// SweptExtensions are the only file types removed when a mod's file list changes
var SweptExtensions = []string{"ocd", "ocf", "ocs"}

// ErrUnsafeName is returned for filenames that would escape the mod directory
var ErrUnsafeName = errors.New("unsafe file name")

// Dir is the mods directory: one subdirectory "<id>_<name>" per installed mod
type Dir struct {
	root string
}

// New creates a mods directory manager rooted at root
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the mods directory path
func (d *Dir) Root() string {
	return d.root
}

// ModPath returns the install directory for a mod id and slug.
// The id must be usable as the leading part of a single directory name.
func (d *Dir) ModPath(id, slug string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(d.root, id+"_"+sanitizeSlug(slug)), nil
}

// ValidateID rejects mod ids that cannot form a "<id>_<name>" directory
// inside the mods root
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\_`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: mod id %q", ErrUnsafeName, id)
	}
	return nil
}

// ParseEntryName splits a directory name into mod id and name.
// The id is everything before the first '_' and must not be empty.
func ParseEntryName(leaf string) (id, name string, ok bool) {
	i := strings.IndexByte(leaf, '_')
	if i <= 0 {
		return "", "", false
	}
	return leaf[:i], leaf[i+1:], true
}

// FilePath joins a mod directory and a declared filename, rejecting names with path components
func FilePath(modPath, name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return filepath.Join(modPath, name), nil
}

// MetadataPath returns the sidecar path of a mod directory
func MetadataPath(modPath string) string {
	return filepath.Join(modPath, MetadataFile)
}

// ReadMetadata reads the sidecar of a mod directory
func ReadMetadata(modPath string) ([]byte, error) {
	data, err := os.ReadFile(MetadataPath(modPath))
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return data, nil
}

// WriteMetadata replaces the sidecar of a mod directory atomically
func WriteMetadata(modPath string, data []byte) error {
	if err := os.MkdirAll(modPath, 0755); err != nil {
		return fmt.Errorf("creating mod dir: %w", err)
	}

	target := MetadataPath(modPath)
	tempPath := target + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming metadata: %w", err)
	}
	return nil
}

// ListFiles returns the regular files directly inside a mod directory
func ListFiles(modPath string) ([]string, error) {
	entries, err := os.ReadDir(modPath)
	if err != nil {
		return nil, fmt.Errorf("listing mod files: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

// Size returns the total size of all files below a mod directory
func Size(modPath string) (int64, error) {
	var totalSize int64
	err := filepath.WalkDir(modPath, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("calculating mod size: %w", err)
	}
	return totalSize, nil
}

// Sweep deletes files with a swept extension that are not in keep.
// Directories and other file types are never touched. Returns the removed names.
func Sweep(modPath string, keep []string) ([]string, error) {
	required := make(map[string]bool, len(keep))
	for _, name := range keep {
		required[name] = true
	}

	files, err := ListFiles(modPath)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, name := range files {
		if required[name] || !isSwept(name) {
			continue
		}
		if err := os.Remove(filepath.Join(modPath, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing %s: %w", name, err))
			continue
		}
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}

// Remove deletes an installed mod directory. The path must be inside the mods directory.
func (d *Dir) Remove(modPath string) error {
	rel, err := filepath.Rel(d.root, modPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("%w: %s is not a mod directory", ErrUnsafeName, modPath)
	}
	if err := os.RemoveAll(modPath); err != nil {
		return fmt.Errorf("deleting mod dir: %w", err)
	}
	return nil
}

func isSwept(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	ext := name[i+1:]
	for _, e := range SweptExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// sanitizeSlug keeps the slug usable as a single path element
func sanitizeSlug(slug string) string {
	slug = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}
		return r
	}, strings.TrimSpace(slug))
	if slug == "" || slug == "." || slug == ".." {
		return "mod"
	}
	return slug
}
