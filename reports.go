package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Derived report handler functions. These compute from the committed
// snapshot; nothing here mutates state.

// @Summary Get balances
// @Description Net balance per member (positive = owed money) plus the per-transaction debt edges, derived from the current ledger
// @Tags reports
// @Produce json
// @Success 200 {object} LedgerSummary "Balances and debt edges"
// @Failure 503 {object} map[string]interface{} "Persistence backend unavailable"
// @Router /api/balances [get]
func (a *app) getBalances(c *gin.Context) {
	store, err := a.registry.Store(tenantID(c))
	if err != nil {
		log.Printf("Error loading ledger for %s: %v", tenantID(c), err)
		handleStoreError(c, err)
		return
	}

	summary := aggregate(store.Get().Document)
	c.JSON(http.StatusOK, summary)
}

// @Summary Get settlement plan
// @Description Transfers that zero out all current balances, largest debtor paired with largest creditor first
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{} "List of transfers"
// @Failure 503 {object} map[string]interface{} "Persistence backend unavailable"
// @Router /api/settlement [get]
func (a *app) getSettlement(c *gin.Context) {
	store, err := a.registry.Store(tenantID(c))
	if err != nil {
		log.Printf("Error loading ledger for %s: %v", tenantID(c), err)
		handleStoreError(c, err)
		return
	}

	summary := aggregate(store.Get().Document)
	c.JSON(http.StatusOK, gin.H{"transfers": planSettlement(summary.Balances)})
}
