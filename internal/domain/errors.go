package domain

import (
	"errors"
	"strings"
)

var (
	ErrModNotFound          = errors.New("mod not found")
	ErrInvalidServer        = errors.New("invalid server")
	ErrTransport            = errors.New("transport failure")
	ErrParse                = errors.New("malformed server response")
	ErrProtocolMismatch     = errors.New("unexpected server response")
	ErrNothingToDo          = errors.New("nothing to do")
	ErrFilesystem           = errors.New("filesystem failure")
	ErrDependencyUnresolved = errors.New("dependency not resolved")
	ErrRequestOutstanding   = errors.New("request already in progress")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrCancelled            = errors.New("cancelled")
)

// NothingToDoError is returned when a run has zero bytes to transfer
type NothingToDoError struct {
	AlreadyInstalled bool     // At least one file was found on disk
	Details          []string // Item errors collected before the check
}

func (e *NothingToDoError) Error() string {
	msg := "no data available"
	if e.AlreadyInstalled {
		msg = "already installed and up to date"
	}
	if len(e.Details) > 0 {
		msg += "\n" + strings.Join(e.Details, "\n")
	}
	return msg
}

// Is makes errors.Is(err, ErrNothingToDo) match
func (e *NothingToDoError) Is(target error) bool {
	return target == ErrNothingToDo
}
