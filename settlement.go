package main

import "sort"

// Settlement planning

type settlementEntry struct {
	id     string
	amount int64
}

// planSettlement turns net balances into transfers that zero every balance.
//
// Creditors and debtors are sorted by descending magnitude (ties by member
// ID so the plan is deterministic), then greedily matched largest against
// largest. The plan uses at most one transfer fewer than the number of
// members with a nonzero balance. This is the usual min-cash-flow heuristic,
// not a provably minimal transfer count; finding the true minimum is NP-hard.
func planSettlement(balances map[string]int64) []Transfer {
	var creditors, debtors []settlementEntry
	for id, b := range balances {
		switch {
		case b > 0:
			creditors = append(creditors, settlementEntry{id: id, amount: b})
		case b < 0:
			debtors = append(debtors, settlementEntry{id: id, amount: -b})
		}
	}
	sortByAmount(creditors)
	sortByAmount(debtors)

	transfers := []Transfer{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min64(debtors[i].amount, creditors[j].amount)
		if amount > 0 {
			transfers = append(transfers, Transfer{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}
		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return transfers
}

func sortByAmount(entries []settlementEntry) {
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].amount != entries[b].amount {
			return entries[a].amount > entries[b].amount
		}
		return entries[a].id < entries[b].id
	})
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
