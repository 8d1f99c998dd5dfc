package main

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SyncStore {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	store, err := NewSyncStore("tenant", backend, NewChangeNotifier())
	require.NoError(t, err)
	return store
}

func sampleDocument() LedgerDocument {
	return LedgerDocument{
		Members: testMembers("a", "b"),
		Transactions: []Transaction{
			{ID: "t1", Total: 100, Participants: []string{"a", "b"}, Mode: ModeEqual, Payer: "a"},
		},
	}
}

func TestSyncStorePut(t *testing.T) {
	t.Run("fresh store starts at version zero", func(t *testing.T) {
		store := newTestStore(t)

		snap := store.Get()
		assert.Equal(t, int64(0), snap.Version)
		assert.NotEmpty(t, snap.Etag)
		assert.Empty(t, snap.Document.Members)
	})

	t.Run("accepted put bumps version by one and changes etag", func(t *testing.T) {
		store := newTestStore(t)
		before := store.Get()

		snap, err := store.Put(sampleDocument(), before.Etag)

		require.NoError(t, err)
		assert.Equal(t, before.Version+1, snap.Version)
		assert.NotEqual(t, before.Etag, snap.Etag)
	})

	t.Run("round trip returns the stored document", func(t *testing.T) {
		store := newTestStore(t)
		doc := sampleDocument()

		put, err := store.Put(doc, "")
		require.NoError(t, err)

		got := store.Get()
		assert.Equal(t, doc, got.Document)
		assert.Equal(t, put.Version, got.Version)
		assert.Equal(t, put.Etag, got.Etag)
	})

	t.Run("stale etag is rejected with the current snapshot", func(t *testing.T) {
		store := newTestStore(t)
		stale := store.Get().Etag

		_, err := store.Put(sampleDocument(), stale)
		require.NoError(t, err)
		current := store.Get()

		_, err = store.Put(LedgerDocument{}, stale)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, current.Version, conflict.Current.Version)
		assert.Equal(t, current.Etag, conflict.Current.Etag)
		assert.Equal(t, current.Document, conflict.Current.Document)

		// The rejected write must not have advanced anything.
		assert.Equal(t, current.Version, store.Get().Version)
		assert.Equal(t, current.Etag, store.Get().Etag)
	})

	t.Run("empty ifMatch writes unconditionally", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.Put(sampleDocument(), "")
		require.NoError(t, err)

		snap, err := store.Put(LedgerDocument{}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), snap.Version)
	})

	t.Run("state survives a reload from the backend", func(t *testing.T) {
		backend, err := NewFileBackend(t.TempDir())
		require.NoError(t, err)

		store, err := NewSyncStore("tenant", backend, nil)
		require.NoError(t, err)
		put, err := store.Put(sampleDocument(), "")
		require.NoError(t, err)

		reloaded, err := NewSyncStore("tenant", backend, nil)
		require.NoError(t, err)
		assert.Equal(t, put.Version, reloaded.Get().Version)
		assert.Equal(t, sampleDocument(), reloaded.Get().Document)
	})

	t.Run("concurrent conditional puts accept exactly one writer per etag", func(t *testing.T) {
		store := newTestStore(t)
		etag := store.Get().Etag

		const writers = 16
		var wg sync.WaitGroup
		accepted := make(chan VersionedSnapshot, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if snap, err := store.Put(sampleDocument(), etag); err == nil {
					accepted <- snap
				}
			}()
		}
		wg.Wait()
		close(accepted)

		var wins int
		for range accepted {
			wins++
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, int64(1), store.Get().Version)
	})
}

// failingBackend refuses every save.
type failingBackend struct{}

func (failingBackend) Load(string) (LedgerDocument, int64, error) {
	return LedgerDocument{}.normalized(), 0, nil
}

func (failingBackend) Save(string, LedgerDocument, int64) error {
	return &BackendError{Op: "save", Err: errors.New("backend down")}
}

func TestSyncStorePutBackendFailure(t *testing.T) {
	store, err := NewSyncStore("tenant", failingBackend{}, nil)
	require.NoError(t, err)
	before := store.Get()

	_, err = store.Put(sampleDocument(), before.Etag)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)

	// A failed persist commits nothing.
	assert.Equal(t, before.Version, store.Get().Version)
	assert.Equal(t, before.Etag, store.Get().Etag)
}

func TestStoreRegistry(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	registry := NewStoreRegistry(backend, NewChangeNotifier())

	t.Run("same tenant gets the same store", func(t *testing.T) {
		first, err := registry.Store("alice")
		require.NoError(t, err)
		second, err := registry.Store("alice")
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("tenants are independent", func(t *testing.T) {
		alice, err := registry.Store("alice2")
		require.NoError(t, err)
		bob, err := registry.Store("bob")
		require.NoError(t, err)

		_, err = alice.Put(sampleDocument(), "")
		require.NoError(t, err)

		assert.Equal(t, int64(1), alice.Get().Version)
		assert.Equal(t, int64(0), bob.Get().Version)
	})
}
