package main

import (
	"math"
	"sort"
)

// Share allocation functions
//
// Every function here returns per-participant integer shares that sum to the
// transaction total exactly. Participant order matters: it decides who
// receives leftover units when the total does not divide evenly.

// computeShares splits tx.Total among tx.Participants according to tx.Mode.
// An empty participant list yields an empty map; callers must reject such a
// transaction before persisting it.
func computeShares(tx *Transaction) map[string]int64 {
	if len(tx.Participants) == 0 {
		return map[string]int64{}
	}

	switch tx.Mode {
	case ModeExplicit:
		if tx.Shares != nil {
			return splitExplicit(tx.Total, tx.Participants, tx.Shares)
		}
	case ModeWeights:
		if tx.Weights != nil {
			return splitWeighted(tx.Total, tx.Participants, tx.Weights)
		}
	}

	return splitEqual(tx.Total, tx.Participants)
}

// splitEqual assigns floor(total/n) to everyone and one extra unit to the
// first total%n participants in order.
func splitEqual(total int64, participants []string) map[string]int64 {
	n := int64(len(participants))
	base := total / n
	remainder := total - base*n

	shares := make(map[string]int64, n)
	for i, id := range participants {
		shares[id] = base
		if int64(i) < remainder {
			shares[id]++
		}
	}
	return shares
}

// splitWeighted allocates proportionally to non-negative weights using the
// largest-remainder method: each participant gets the floor of their exact
// proportional amount, and leftover units go to the largest fractional
// remainders first (ties keep participant order). A non-positive weight sum
// falls back to an equal split.
func splitWeighted(total int64, participants []string, weights map[string]float64) map[string]int64 {
	n := len(participants)
	clamped := make([]float64, n)
	var sumW float64
	for i, id := range participants {
		if w := weights[id]; w > 0 {
			clamped[i] = w
			sumW += w
		}
	}
	if sumW <= 0 {
		return splitEqual(total, participants)
	}

	shares := make(map[string]int64, n)
	fractions := make([]float64, n)
	var assigned int64
	for i, id := range participants {
		raw := float64(total) * clamped[i] / sumW
		base := int64(math.Floor(raw))
		shares[id] = base
		fractions[i] = raw - float64(base)
		assigned += base
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]] > fractions[order[b]]
	})

	// Remainder is 0..n-1 in exact arithmetic; the modulo guards against
	// float rounding producing extra units, and adverse rounding the other
	// way (floors summing past the total) is corrected by removing units
	// from the smallest fractional remainders without going negative.
	remainder := total - assigned
	for k := int64(0); k < remainder; k++ {
		shares[participants[order[k%int64(n)]]]++
	}
	for k := 0; remainder < 0; k = (k + 1) % n {
		if id := participants[order[n-1-k]]; shares[id] > 0 {
			shares[id]--
			remainder++
		}
	}
	return shares
}

// splitExplicit takes user-given shares (negatives clamped to zero) and
// corrects any difference to the total deterministically: surplus units are
// added one at a time in participant order, deficit units removed the same
// way while skipping shares already at zero. Shares never go negative.
func splitExplicit(total int64, participants []string, given map[string]int64) map[string]int64 {
	shares := make(map[string]int64, len(participants))
	var sum int64
	for _, id := range participants {
		s := given[id]
		if s < 0 {
			s = 0
		}
		shares[id] = s
		sum += s
	}

	for diff := total - sum; diff > 0; diff-- {
		shares[participants[int(total-sum-diff)%len(participants)]]++
	}
	for diff := sum - total; diff > 0; {
		for _, id := range participants {
			if diff == 0 {
				break
			}
			if shares[id] > 0 {
				shares[id]--
				diff--
			}
		}
	}
	return shares
}

// sumShares adds up an allocation; used by validation and tests.
func sumShares(shares map[string]int64) int64 {
	var sum int64
	for _, s := range shares {
		sum += s
	}
	return sum
}
