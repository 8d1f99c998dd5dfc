package main

// Ledger aggregation
//
// Folds the transaction history into net balances and a debt-edge audit
// trail. References to members that no longer exist are dropped before
// splitting, so deleting a member never breaks historical transactions.

// LedgerSummary is the derived state of one ledger document
type LedgerSummary struct {
	// Balances maps member ID to net position in minor units;
	// positive means the member is owed money.
	Balances map[string]int64 `json:"balances"`
	// Debts lists every share owed per transaction, for history views.
	Debts []DebtEdge `json:"debts"`
}

// aggregate computes balances and debt edges for a document.
//
// For each transaction: participants, payer and settled set are normalized
// against the current member directory; shares come from computeShares; every
// participant who is neither the payer nor settled is debited their share and
// the payer credited the same amount. A participant listed in settled_by paid
// the payer outside the ledger and is excluded entirely (they never become a
// co-payer). Each debit has a matching credit, so balances always sum to zero.
func aggregate(doc LedgerDocument) LedgerSummary {
	members := make(map[string]bool, len(doc.Members))
	for _, m := range doc.Members {
		members[m.ID] = true
	}

	balances := make(map[string]int64)
	debts := []DebtEdge{}

	for i := range doc.Transactions {
		tx := normalizeTransaction(&doc.Transactions[i], members)
		if tx == nil {
			continue
		}

		settled := make(map[string]bool, len(tx.SettledBy))
		for _, id := range tx.SettledBy {
			settled[id] = true
		}

		shares := computeShares(tx)
		for _, id := range tx.Participants {
			share := shares[id]
			if id == tx.Payer || settled[id] || share <= 0 {
				continue
			}
			balances[id] -= share
			balances[tx.Payer] += share
			debts = append(debts, DebtEdge{From: id, To: tx.Payer, Amount: share, TxID: tx.ID})
		}
	}

	return LedgerSummary{Balances: balances, Debts: debts}
}

// normalizeTransaction returns a copy of tx restricted to existing members,
// or nil if the transaction can no longer contribute to balances (payer
// deleted or no participants left).
func normalizeTransaction(tx *Transaction, members map[string]bool) *Transaction {
	if !members[tx.Payer] {
		return nil
	}

	participants := make([]string, 0, len(tx.Participants))
	for _, id := range tx.Participants {
		if members[id] {
			participants = append(participants, id)
		}
	}
	if len(participants) == 0 {
		return nil
	}

	settledBy := make([]string, 0, len(tx.SettledBy))
	for _, id := range tx.SettledBy {
		if members[id] {
			settledBy = append(settledBy, id)
		}
	}

	out := *tx
	out.Participants = participants
	out.SettledBy = settledBy
	return &out
}
