package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ledger sync handler functions

// putRequest is the PUT /api/ledger body.
type putRequest struct {
	Document *LedgerDocument `json:"document"`
}

// @Summary Get ledger
// @Description Retrieve the current ledger document and version for the calling tenant. The response ETag header carries the version token for conditional writes.
// @Tags ledger
// @Produce json
// @Success 200 {object} map[string]interface{} "Current document and version"
// @Failure 503 {object} map[string]interface{} "Persistence backend unavailable"
// @Router /api/ledger [get]
func (a *app) getLedger(c *gin.Context) {
	store, err := a.registry.Store(tenantID(c))
	if err != nil {
		log.Printf("Error loading ledger for %s: %v", tenantID(c), err)
		handleStoreError(c, err)
		return
	}

	snap := store.Get()
	c.Header("ETag", snap.Etag)
	c.JSON(http.StatusOK, gin.H{"document": snap.Document, "version": snap.Version})
}

// @Summary Replace ledger
// @Description Replace the whole ledger document. Send the last observed etag in If-Match to detect concurrent writes; a stale etag yields 409 with the current snapshot so the client can rebase and retry.
// @Tags ledger
// @Accept json
// @Produce json
// @Param document body putRequest true "New ledger document"
// @Success 200 {object} map[string]interface{} "New version and etag"
// @Failure 400 {object} map[string]interface{} "Document failed validation"
// @Failure 401 {object} map[string]interface{} "Missing or wrong API key"
// @Failure 409 {object} map[string]interface{} "Stale etag; body carries the current snapshot"
// @Failure 503 {object} map[string]interface{} "Persistence backend unavailable"
// @Router /api/ledger [put]
func (a *app) putLedger(c *gin.Context) {
	var req putRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Document == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document is required"})
		return
	}

	doc := req.Document.normalized()
	if err := validateDocument(doc); err != nil {
		handleStoreError(c, err)
		return
	}

	store, err := a.registry.Store(tenantID(c))
	if err != nil {
		log.Printf("Error loading ledger for %s: %v", tenantID(c), err)
		handleStoreError(c, err)
		return
	}

	snap, err := store.Put(doc, c.GetHeader("If-Match"))
	if err != nil {
		handleStoreError(c, err)
		return
	}

	c.Header("ETag", snap.Etag)
	c.JSON(http.StatusOK, gin.H{"version": snap.Version, "etag": snap.Etag})
}

// @Summary Health check
// @Description Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "ok"
// @Router /api/health [get]
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
