package db

import "fmt"

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of applied migrations
func (d *DB) SchemaVersion() (int, error) {
	var version int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

func migrateV1(d *DB) error {
	_, err := d.Exec(`
		CREATE TABLE installed_mods (
			mod_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			author TEXT,
			updated_at TEXT,
			install_path TEXT NOT NULL,
			installed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func migrateV2(d *DB) error {
	// Declared files of the installed version, used by verify
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS installed_mod_files (
			mod_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			handle TEXT NOT NULL,
			size INTEGER NOT NULL,
			sha1 TEXT,
			PRIMARY KEY(mod_id, file_name),
			FOREIGN KEY(mod_id) REFERENCES installed_mods(mod_id) ON DELETE CASCADE
		)
	`)
	return err
}
