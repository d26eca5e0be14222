package domain

import "time"

// InstallRecord is the history entry kept for an installed mod
type InstallRecord struct {
	ModID       string
	Title       string
	Slug        string
	Author      string
	UpdatedAt   string // Server timestamp of the installed version
	Path        string
	InstalledAt time.Time
	Files       []FileEntry
}

// Installation reports the outcome of one successful pipeline item
type Installation struct {
	Record ModRecord
	Path   string
}
