package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Remote backend handler functions. The external authorization flow itself
// (consent, tokens, revocation) lives outside this service; linking a tenant
// here records that the flow completed.

// @Summary Remote link status
// @Description Reports whether the calling tenant is linked to the remote backend
// @Tags remote
// @Produce json
// @Success 200 {object} map[string]interface{} "Link status"
// @Router /api/remote/status [get]
func (a *app) remoteStatus(c *gin.Context) {
	linked := false
	if a.remote != nil {
		var err error
		linked, err = a.remote.IsLinked(tenantID(c))
		if err != nil {
			log.Printf("Error checking link for %s: %v", tenantID(c), err)
			handleStoreError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

// @Summary Link remote backend
// @Description Marks the calling tenant as linked to the remote backend; subsequent writes persist remotely
// @Tags remote
// @Produce json
// @Success 200 {object} map[string]interface{} "Linked"
// @Failure 503 {object} map[string]interface{} "No remote backend configured"
// @Router /api/remote/link [post]
func (a *app) remoteLink(c *gin.Context) {
	if a.remote == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remote_unavailable"})
		return
	}
	if err := a.remote.Link(tenantID(c)); err != nil {
		log.Printf("Error linking %s: %v", tenantID(c), err)
		handleStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": true})
}

// @Summary Save to remote backend
// @Description Pushes the tenant's current snapshot to the remote backend
// @Tags remote
// @Produce json
// @Success 200 {object} map[string]interface{} "Saved version and etag"
// @Failure 401 {object} map[string]interface{} "Tenant not linked"
// @Failure 503 {object} map[string]interface{} "Remote backend unavailable"
// @Router /api/remote/save [post]
func (a *app) remoteSave(c *gin.Context) {
	tenant := tenantID(c)
	if err := a.requireLinked(tenant); err != nil {
		handleStoreError(c, err)
		return
	}

	store, err := a.registry.Store(tenant)
	if err != nil {
		handleStoreError(c, err)
		return
	}

	snap := store.Get()
	if err := a.remote.Save(tenant, snap.Document, snap.Version); err != nil {
		log.Printf("Error saving to remote for %s: %v", tenant, err)
		handleStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": snap.Version, "etag": snap.Etag})
}

// @Summary Load from remote backend
// @Description Pulls the remote document and commits it as a new version of the tenant's ledger, notifying subscribed sessions
// @Tags remote
// @Produce json
// @Success 200 {object} map[string]interface{} "Loaded document and new version"
// @Failure 401 {object} map[string]interface{} "Tenant not linked"
// @Failure 503 {object} map[string]interface{} "Remote backend unavailable"
// @Router /api/remote/load [get]
func (a *app) remoteLoad(c *gin.Context) {
	tenant := tenantID(c)
	if err := a.requireLinked(tenant); err != nil {
		handleStoreError(c, err)
		return
	}

	doc, _, err := a.remote.Load(tenant)
	if err != nil {
		log.Printf("Error loading from remote for %s: %v", tenant, err)
		handleStoreError(c, err)
		return
	}

	store, err := a.registry.Store(tenant)
	if err != nil {
		handleStoreError(c, err)
		return
	}

	// Committed unconditionally: a remote load replaces whatever the store
	// holds, the same way the original sync flow did.
	snap, err := store.Put(doc, "")
	if err != nil {
		handleStoreError(c, err)
		return
	}

	c.Header("ETag", snap.Etag)
	c.JSON(http.StatusOK, gin.H{"document": snap.Document, "version": snap.Version})
}

// requireLinked returns ErrNotLinked for an unlinked tenant. A failed link
// check is a backend failure, not an auth failure, and is returned as-is so
// the caller answers 503 rather than telling a linked user they are not.
func (a *app) requireLinked(tenant string) error {
	if a.remote == nil {
		return ErrNotLinked
	}
	linked, err := a.remote.IsLinked(tenant)
	if err != nil {
		return err
	}
	if !linked {
		return ErrNotLinked
	}
	return nil
}
