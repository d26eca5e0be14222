package core

import (
	"fmt"
	"sort"

	"ocmods/internal/domain"
	"ocmods/internal/storage/modsdir"
)

// UnresolvedDependencies reports dependencies of a run that cannot be satisfied:
// the dependency failed and no local copy exists.
func UnresolvedDependencies(items []*Item) []error {
	byID := make(map[string]*Item, len(items))
	for _, it := range items {
		byID[it.ID()] = it
	}

	var errs []error
	seen := make(map[string]bool)
	for _, it := range items {
		for _, dep := range it.Record.Dependencies {
			if seen[dep] {
				continue
			}
			d, ok := byID[dep]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%w: %s requires %s which is not queued", domain.ErrDependencyUnresolved, it.ID(), dep))
			case d.Err != nil && !d.Installed:
				errs = append(errs, fmt.Errorf("%w: %s requires %s: %v", domain.ErrDependencyUnresolved, it.ID(), dep, d.Err))
			default:
				continue
			}
			seen[dep] = true
		}
	}
	return errs
}

// Dependents returns every record that depends on id, directly or transitively,
// ordered by id. Cycles are tolerated.
func Dependents(id string, records []domain.ModRecord) []domain.ModRecord {
	// reverse edges: dependency -> dependents
	reverse := make(map[string][]int)
	for i, rec := range records {
		for _, dep := range rec.Dependencies {
			reverse[dep] = append(reverse[dep], i)
		}
	}

	visited := make(map[int]bool)
	var result []domain.ModRecord

	var visit func(key string)
	visit = func(key string) {
		for _, i := range reverse[key] {
			if visited[i] {
				continue
			}
			visited[i] = true
			if records[i].ID == id {
				continue
			}
			result = append(result, records[i])
			visit(records[i].ID)
		}
	}
	visit(id)

	sort.Slice(result, func(a, b int) bool { return modsdir.LessID(result[a].ID, result[b].ID) })
	return result
}

// MissingDependencies maps each record id to the dependencies absent from records
func MissingDependencies(records []domain.ModRecord) map[string][]string {
	available := make(map[string]bool, len(records))
	for _, rec := range records {
		available[rec.ID] = true
	}

	missing := make(map[string][]string)
	for _, rec := range records {
		for _, dep := range rec.Dependencies {
			if !available[dep] {
				missing[rec.ID] = append(missing[rec.ID], dep)
			}
		}
	}
	return missing
}
