package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PersistenceBackend is the durable store for ledger documents. There is one
// authoritative copy per tenant; the in-process SyncStore mutex is what keeps
// writes single-file, the backend itself does no locking.
type PersistenceBackend interface {
	// Load returns the last persisted document and version for a tenant.
	// A tenant that was never saved loads as an empty document at version 0.
	Load(tenant string) (LedgerDocument, int64, error)
	// Save persists the document at the given version.
	Save(tenant string, doc LedgerDocument, version int64) error
}

// ErrNotLinked is returned when a remote operation is attempted for a tenant
// that has not linked the remote backend.
var ErrNotLinked = errors.New("not_linked")

// BackendError wraps a failure of the durable store so callers can tell
// "try again later" apart from validation or conflict failures.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("persistence backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// FileBackend persists one JSON file per tenant under a data directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &BackendError{Op: "init", Err: err}
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Load(tenant string) (LedgerDocument, int64, error) {
	data, err := os.ReadFile(b.path(tenant))
	if os.IsNotExist(err) {
		return LedgerDocument{}.normalized(), 0, nil
	}
	if err != nil {
		return LedgerDocument{}, 0, &BackendError{Op: "load", Err: err}
	}

	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return LedgerDocument{}, 0, &BackendError{Op: "load", Err: err}
	}
	return state.Document.normalized(), state.Version, nil
}

func (b *FileBackend) Save(tenant string, doc LedgerDocument, version int64) error {
	data, err := json.Marshal(PersistedState{Document: doc.normalized(), Version: version})
	if err != nil {
		return &BackendError{Op: "save", Err: err}
	}

	// Write-then-rename so a crash never leaves a torn file behind.
	path := b.path(tenant)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &BackendError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &BackendError{Op: "save", Err: err}
	}
	return nil
}

func (b *FileBackend) path(tenant string) string {
	return filepath.Join(b.dir, sanitizeTenant(tenant)+".json")
}

// sanitizeTenant keeps tenant-derived file names to a safe character set.
func sanitizeTenant(tenant string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, tenant)
}

// RemoteBackend is a persistence backend that tenants opt into by linking.
// *PostgresBackend is the production implementation.
type RemoteBackend interface {
	IsLinked(tenant string) (bool, error)
	Link(tenant string) error
	Load(tenant string) (LedgerDocument, int64, error)
	Save(tenant string, doc LedgerDocument, version int64) error
}

// routingBackend sends a tenant's traffic to the remote backend once that
// tenant is linked, and to the local file backend otherwise. After linking,
// remote failures are surfaced as-is: falling back to the local copy would
// quietly discard the authoritative remote state.
type routingBackend struct {
	local  *FileBackend
	remote RemoteBackend
}

func (b *routingBackend) Load(tenant string) (LedgerDocument, int64, error) {
	if b.remote != nil {
		linked, err := b.remote.IsLinked(tenant)
		if err != nil {
			return LedgerDocument{}, 0, err
		}
		if linked {
			return b.remote.Load(tenant)
		}
	}
	return b.local.Load(tenant)
}

func (b *routingBackend) Save(tenant string, doc LedgerDocument, version int64) error {
	if b.remote != nil {
		linked, err := b.remote.IsLinked(tenant)
		if err != nil {
			return err
		}
		if linked {
			return b.remote.Save(tenant, doc, version)
		}
	}
	return b.local.Save(tenant, doc, version)
}
