package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ocmods/internal/domain"
)

// SaveInstall records a completed install, replacing any previous entry for the mod
// together with its file list
func (d *DB) SaveInstall(rec domain.ModRecord, installPath string) (err error) {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO installed_mods (mod_id, title, slug, author, updated_at, install_path, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mod_id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			author = excluded.author,
			updated_at = excluded.updated_at,
			install_path = excluded.install_path,
			installed_at = excluded.installed_at
	`, rec.ID, rec.Title, rec.Slug, rec.Author, rec.UpdatedAt, installPath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving installed mod: %w", err)
	}

	if err = replaceFiles(tx, rec.ID, rec.Files); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing install: %w", err)
	}
	return nil
}

// GetInstalls returns the install history ordered by mod id
func (d *DB) GetInstalls() ([]domain.InstallRecord, error) {
	rows, err := d.Query(`
		SELECT mod_id, title, slug, author, updated_at, install_path, installed_at
		FROM installed_mods
		ORDER BY mod_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying installed mods: %w", err)
	}

	var records []domain.InstallRecord
	for rows.Next() {
		rec, err := scanInstall(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Files are loaded after the cursor is closed; the pool has a single connection
	for i := range records {
		files, err := d.GetInstallFiles(records[i].ModID)
		if err != nil {
			return nil, err
		}
		records[i].Files = files
	}

	return records, nil
}

// GetInstall returns the history entry of one mod
func (d *DB) GetInstall(modID string) (*domain.InstallRecord, error) {
	row := d.QueryRow(`
		SELECT mod_id, title, slug, author, updated_at, install_path, installed_at
		FROM installed_mods
		WHERE mod_id = ?
	`, modID)

	rec, err := scanInstall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrModNotFound, modID)
		}
		return nil, err
	}

	files, err := d.GetInstallFiles(modID)
	if err != nil {
		return nil, err
	}
	rec.Files = files

	return rec, nil
}

// DeleteInstall removes a mod's history entry and its files
func (d *DB) DeleteInstall(modID string) error {
	result, err := d.Exec(`DELETE FROM installed_mods WHERE mod_id = ?`, modID)
	if err != nil {
		return fmt.Errorf("deleting installed mod: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrModNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstall(s scanner) (*domain.InstallRecord, error) {
	var rec domain.InstallRecord
	var author, updatedAt sql.NullString
	err := s.Scan(&rec.ModID, &rec.Title, &rec.Slug, &author, &updatedAt, &rec.Path, &rec.InstalledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning installed mod: %w", err)
	}
	rec.Author = author.String
	rec.UpdatedAt = updatedAt.String
	return &rec, nil
}
