package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SyncStore holds the single authoritative versioned snapshot for one tenant
// and enforces compare-and-swap writes against it.
//
// Reads never block: the committed snapshot sits behind an atomic pointer and
// is swapped whole, so a reader sees either the pre- or post-write state,
// never a partial one. Writes for the same tenant serialize on the store
// mutex; different tenants have independent stores and never contend.
type SyncStore struct {
	tenant   string
	backend  PersistenceBackend
	notifier *ChangeNotifier

	mu   sync.Mutex
	snap atomic.Pointer[VersionedSnapshot]
}

// ConflictError reports a compare-and-swap rejection. It carries the current
// snapshot so the caller can rebase and retry; no merging happens here.
type ConflictError struct {
	Current VersionedSnapshot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("etag conflict: current version %d", e.Current.Version)
}

// NewSyncStore loads the tenant's last persisted state. A backend failure
// here is surfaced, not papered over with an empty document.
func NewSyncStore(tenant string, backend PersistenceBackend, notifier *ChangeNotifier) (*SyncStore, error) {
	doc, version, err := backend.Load(tenant)
	if err != nil {
		return nil, err
	}

	s := &SyncStore{tenant: tenant, backend: backend, notifier: notifier}
	s.snap.Store(&VersionedSnapshot{
		Document: doc.normalized(),
		Version:  version,
		Etag:     makeEtag(version),
	})
	return s, nil
}

// Get returns the last committed snapshot.
func (s *SyncStore) Get() VersionedSnapshot {
	return *s.snap.Load()
}

// Put replaces the document, guarded by optimistic concurrency: when
// ifMatch is non-empty it must equal the stored etag or the write is
// rejected with a ConflictError. An accepted write bumps the version by
// exactly one, persists through the backend first, then swaps the snapshot
// in and fans the update out to subscribers. If persistence fails nothing
// is committed.
func (s *SyncStore) Put(doc LedgerDocument, ifMatch string) (VersionedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	if ifMatch != "" && ifMatch != current.Etag {
		return VersionedSnapshot{}, &ConflictError{Current: *current}
	}

	next := &VersionedSnapshot{
		Document: doc.normalized(),
		Version:  current.Version + 1,
		Etag:     makeEtag(current.Version + 1),
	}
	if err := s.backend.Save(s.tenant, next.Document, next.Version); err != nil {
		return VersionedSnapshot{}, err
	}
	s.snap.Store(next)

	if s.notifier != nil {
		s.notifier.Publish(s.tenant, UpdateEvent{
			Type:     "update",
			Version:  next.Version,
			Etag:     next.Etag,
			Document: next.Document,
		})
	}
	return *next, nil
}

// makeEtag derives the opaque version token. The random suffix ties the tag
// to this process's commit of the version, so a tag is never reused even
// across restarts that replay the same version number.
func makeEtag(version int64) string {
	return fmt.Sprintf(`"v-%d-%s"`, version, uuid.NewString()[:8])
}

// StoreRegistry hands out one SyncStore per tenant, creating them lazily on
// first use.
type StoreRegistry struct {
	backend  PersistenceBackend
	notifier *ChangeNotifier

	mu     sync.Mutex
	stores map[string]*SyncStore
}

func NewStoreRegistry(backend PersistenceBackend, notifier *ChangeNotifier) *StoreRegistry {
	return &StoreRegistry{
		backend:  backend,
		notifier: notifier,
		stores:   make(map[string]*SyncStore),
	}
}

// Store returns the tenant's store, loading it from the backend on first
// access.
func (r *StoreRegistry) Store(tenant string) (*SyncStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[tenant]; ok {
		return s, nil
	}
	s, err := NewSyncStore(tenant, r.backend, r.notifier)
	if err != nil {
		return nil, err
	}
	r.stores[tenant] = s
	return s, nil
}
