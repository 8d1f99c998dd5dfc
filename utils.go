package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Validation functions

// ValidationError reports input that must be fixed by the caller; nothing is
// ever partially applied.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// validateDocument checks the structural invariants of a ledger document
// before it may replace the stored one.
func validateDocument(doc LedgerDocument) error {
	members := make(map[string]bool, len(doc.Members))
	for _, m := range doc.Members {
		if m.ID == "" {
			return validationErrorf("member id cannot be empty")
		}
		if m.DisplayName == "" {
			return validationErrorf("member %s: display name cannot be empty", m.ID)
		}
		if members[m.ID] {
			return validationErrorf("duplicate member id %s", m.ID)
		}
		members[m.ID] = true
	}

	txIDs := make(map[string]bool, len(doc.Transactions))
	for i := range doc.Transactions {
		if err := validateTransaction(&doc.Transactions[i], members); err != nil {
			return err
		}
		if txIDs[doc.Transactions[i].ID] {
			return validationErrorf("duplicate transaction id %s", doc.Transactions[i].ID)
		}
		txIDs[doc.Transactions[i].ID] = true
	}
	return nil
}

func validateTransaction(tx *Transaction, members map[string]bool) error {
	if tx.ID == "" {
		return validationErrorf("transaction id cannot be empty")
	}
	if tx.Total <= 0 {
		return validationErrorf("transaction %s: total must be positive", tx.ID)
	}
	if len(tx.Participants) == 0 {
		return validationErrorf("transaction %s: participants cannot be empty", tx.ID)
	}
	for _, id := range tx.Participants {
		if !members[id] {
			return validationErrorf("transaction %s: unknown participant %s", tx.ID, id)
		}
	}
	if !members[tx.Payer] {
		return validationErrorf("transaction %s: unknown payer %s", tx.ID, tx.Payer)
	}
	for _, id := range tx.SettledBy {
		if !members[id] {
			return validationErrorf("transaction %s: unknown settled_by member %s", tx.ID, id)
		}
	}

	switch tx.Mode {
	case ModeEqual:
	case ModeWeights:
		for id, w := range tx.Weights {
			if w < 0 {
				return validationErrorf("transaction %s: negative weight for %s", tx.ID, id)
			}
		}
	case ModeExplicit:
		// Stricter than the historical behavior: mismatched shares are
		// rejected here instead of silently corrected. Share keys outside
		// the participant set would be dropped by the allocator, so they
		// are rejected too.
		participants := make(map[string]bool, len(tx.Participants))
		for _, id := range tx.Participants {
			participants[id] = true
		}
		for id, s := range tx.Shares {
			if !participants[id] {
				return validationErrorf("transaction %s: share for non-participant %s", tx.ID, id)
			}
			if s < 0 {
				return validationErrorf("transaction %s: negative share for %s", tx.ID, id)
			}
		}
		if sum := sumShares(tx.Shares); sum != tx.Total {
			return validationErrorf("transaction %s: explicit shares sum to %d, total is %d", tx.ID, sum, tx.Total)
		}
	default:
		return validationErrorf("transaction %s: unknown split mode %q", tx.ID, tx.Mode)
	}
	return nil
}

// handleStoreError converts store and backend errors to an HTTP response.
// Conflicts carry the current snapshot so the client can rebase and retry.
func handleStoreError(c *gin.Context, err error) {
	var conflict *ConflictError
	var validation *ValidationError
	var backend *BackendError

	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "current": conflict.Current})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Msg})
	case errors.Is(err, ErrNotLinked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_linked"})
	case errors.As(err, &backend):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Request helpers

// tenantID selects which ledger a request addresses; callers supply it in
// the x-user-id header and anonymous traffic shares the "anon" ledger.
func tenantID(c *gin.Context) string {
	if id := c.GetHeader("x-user-id"); id != "" {
		return id
	}
	return "anon"
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
