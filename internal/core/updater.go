package core

import (
	"context"
	"errors"
	"fmt"

	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"
	"ocmods/internal/storage/modsdir"
)

// Update is an installed mod whose server copy changed
type Update struct {
	ID              string
	Title           string
	LocalUpdatedAt  string
	RemoteUpdatedAt string
}

// Updater finds installed mods to refresh
type Updater struct {
	registry *modsdir.Registry
}

// NewUpdater creates a new updater
func NewUpdater(registry *modsdir.Registry) *Updater {
	return &Updater{
		registry: registry,
	}
}

// UpdateRequests returns one request per installed mod. The registry scan must be complete.
func (u *Updater) UpdateRequests() ([]domain.ModRequest, error) {
	installed := u.registry.GetAll()
	if len(installed) == 0 {
		return nil, fmt.Errorf("%w: no mods installed", domain.ErrNothingToDo)
	}

	reqs := make([]domain.ModRequest, 0, len(installed))
	for _, info := range installed {
		name := info.Name
		if name == "" {
			name = domain.UnknownModName
		}
		reqs = append(reqs, domain.ModRequest{ID: info.ID, Name: name})
	}
	return reqs, nil
}

// CheckUpdates compares the sidecar of every installed mod with the server.
// Mods without local metadata are always reported.
func (u *Updater) CheckUpdates(ctx context.Context, client *catalog.Client) ([]Update, error) {
	var updates []Update
	var checkErrs []error

	for _, info := range u.registry.GetAll() {
		select {
		case <-ctx.Done():
			return updates, ctx.Err()
		default:
		}

		local, _ := ReadInstalledRecord(info)

		req, err := client.Lookup(ctx, info.ID)
		if err != nil {
			return updates, err
		}
		doc, err := req.Wait(ctx)
		if err != nil {
			checkErrs = append(checkErrs, fmt.Errorf("mod %s: %w", info.ID, err))
			continue
		}

		remote := doc.Root.Record(domain.SourceDetailView)
		if local.MetadataMissing || remote.UpdatedAt != local.UpdatedAt {
			updates = append(updates, Update{
				ID:              info.ID,
				Title:           remote.DisplayName(),
				LocalUpdatedAt:  local.UpdatedAt,
				RemoteUpdatedAt: remote.UpdatedAt,
			})
		}
	}

	if len(checkErrs) > 0 {
		return updates, fmt.Errorf("update check had %d error(s): %w", len(checkErrs), errors.Join(checkErrs...))
	}
	return updates, nil
}
