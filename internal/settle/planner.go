// Package settle reduces a trip's net balances to a minimal ordered list of
// settling transfers. The planner is pure computation over minor-unit
// integers; it performs no I/O.
package settle

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnbalanced is returned when the input balances do not sum to zero.
// Balances derived from a consistent ledger always do.
var ErrUnbalanced = errors.New("balances do not sum to zero")

// Transfer is one settling payment: From pays To the given positive amount.
type Transfer struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount int64  `json:"amount"`
}

// Plan computes transfers that zero every balance. It greedily pairs the
// participant with the most negative balance against the one with the most
// positive, transferring min(debt, credit) each round. Ties on magnitude
// break toward the lowest participant ID, so output is deterministic. A set
// of n participants settles in at most n-1 transfers.
func Plan(balances map[string]int64) ([]Transfer, error) {
	var sum int64
	for _, b := range balances {
		sum += b
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: sum is %d", ErrUnbalanced, sum)
	}

	// Work on a sorted copy so iteration order never leaks into the plan.
	ids := make([]string, 0, len(balances))
	remaining := make(map[string]int64, len(balances))
	for id, b := range balances {
		if b != 0 {
			ids = append(ids, id)
			remaining[id] = b
		}
	}
	sort.Strings(ids)

	var transfers []Transfer
	for {
		debtor, creditor := "", ""
		for _, id := range ids {
			b := remaining[id]
			if b < 0 && (debtor == "" || b < remaining[debtor]) {
				debtor = id
			}
			if b > 0 && (creditor == "" || b > remaining[creditor]) {
				creditor = id
			}
		}
		if debtor == "" || creditor == "" {
			break
		}

		amount := -remaining[debtor]
		if remaining[creditor] < amount {
			amount = remaining[creditor]
		}

		transfers = append(transfers, Transfer{FromID: debtor, ToID: creditor, Amount: amount})
		remaining[debtor] += amount
		remaining[creditor] -= amount
	}

	return transfers, nil
}
