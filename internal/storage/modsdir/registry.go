package modsdir

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"ocmods/internal/domain"
)

// Registry is the index of installed mods. It is filled by a background scan
// of the mods directory and updated by installs and removals.
type Registry struct {
	root string

	mu   sync.RWMutex
	mods map[string]domain.LocalModInfo

	once sync.Once
	done chan struct{}
}

// NewRegistry creates an empty registry for the mods directory at root
func NewRegistry(root string) *Registry {
	return &Registry{
		root: root,
		mods: make(map[string]domain.LocalModInfo),
		done: make(chan struct{}),
	}
}

// StartScan launches the directory scan. Calling it again has no effect.
func (r *Registry) StartScan() {
	r.once.Do(func() {
		go func() {
			defer close(r.done)
			r.scan()
		}()
	})
}

func (r *Registry) scan() {
	// A missing or unreadable directory leaves the index empty
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, name, ok := ParseEntryName(e.Name())
		if !ok {
			continue
		}
		r.AddMod(id, filepath.Join(r.root, e.Name()), name)
	}
}

// Done is closed once the scan has completed
func (r *Registry) Done() <-chan struct{} {
	return r.done
}

// ScanComplete reports whether the scan has finished without blocking
func (r *Registry) ScanComplete() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// WaitUntilScanComplete blocks until the scan finished or ctx is done.
// It starts the scan if nobody did.
func (r *Registry) WaitUntilScanComplete(ctx context.Context) error {
	r.StartScan()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsInstalled reports whether a mod id is in the index
func (r *Registry) IsInstalled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mods[id]
	return ok
}

// Get returns the installed mod with the given id
func (r *Registry) Get(id string) (domain.LocalModInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.mods[id]
	return info, ok
}

// GetAll returns a snapshot of all installed mods ordered by id
func (r *Registry) GetAll() []domain.LocalModInfo {
	r.mu.RLock()
	mods := make([]domain.LocalModInfo, 0, len(r.mods))
	for _, m := range r.mods {
		mods = append(mods, m)
	}
	r.mu.RUnlock()

	sort.Slice(mods, func(i, j int) bool {
		return LessID(mods[i].ID, mods[j].ID)
	})
	return mods
}

// LessID orders numeric ids by value and everything else as strings
func LessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// AddMod records an installed mod, replacing an existing entry with the same id
func (r *Registry) AddMod(id, path, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods[id] = domain.LocalModInfo{ID: id, Path: path, Name: name}
}

// RemoveMod drops a mod from the index
func (r *Registry) RemoveMod(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mods, id)
}
