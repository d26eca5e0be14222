package db

import (
	"database/sql"
	"fmt"

	"ocmods/internal/domain"
)

// replaceFiles swaps the stored file list of a mod inside tx
func replaceFiles(tx *sql.Tx, modID string, files []domain.FileEntry) error {
	if _, err := tx.Exec(`DELETE FROM installed_mod_files WHERE mod_id = ?`, modID); err != nil {
		return fmt.Errorf("clearing mod files: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO installed_mod_files (mod_id, file_name, handle, size, sha1)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(mod_id, file_name) DO UPDATE SET
			handle = excluded.handle,
			size = excluded.size,
			sha1 = excluded.sha1
	`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(modID, f.Name, f.Handle, f.Size, f.SHA1); err != nil {
			return fmt.Errorf("saving mod file %s: %w", f.Name, err)
		}
	}
	return nil
}

// GetInstallFiles returns the declared files of an installed mod ordered by name
func (d *DB) GetInstallFiles(modID string) ([]domain.FileEntry, error) {
	rows, err := d.Query(`
		SELECT file_name, handle, size, sha1 FROM installed_mod_files
		WHERE mod_id = ?
		ORDER BY file_name
	`, modID)
	if err != nil {
		return nil, fmt.Errorf("querying mod files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileEntry
	for rows.Next() {
		var f domain.FileEntry
		var sha1 sql.NullString
		if err := rows.Scan(&f.Name, &f.Handle, &f.Size, &sha1); err != nil {
			return nil, fmt.Errorf("scanning mod file: %w", err)
		}
		f.SHA1 = sha1.String
		files = append(files, f)
	}
	return files, rows.Err()
}
