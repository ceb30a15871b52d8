// Package split computes each participant's owed share of an expense under a
// split policy. Allocation is pure integer arithmetic on minor units: for any
// input the returned shares sum exactly to the expense amount, with no
// rounding drift.
package split

import (
	"errors"
	"fmt"
	"sort"

	"triptribe/internal/models"
)

// Validation errors returned by Allocate. Callers map these onto their own
// error surface.
var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrNoParticipants   = errors.New("must have at least one participant")
	ErrUnknownPolicy    = errors.New("unknown split policy")
	ErrSharesMismatch   = errors.New("shares do not reconcile with the amount")
	ErrMissingShare     = errors.New("missing share for participant")
	ErrNegativeShare    = errors.New("shares must not be negative")
	ErrBadPercentageSum = errors.New("percentages must sum to 100")
)

// basis points per whole; percentages are validated to this resolution
const fullShareBasisPoints = 10_000

// percentEpsilonBP is the tolerated deviation of the percentage sum from
// 100%, expressed in basis points (0.01%).
const percentEpsilonBP = 1

// Request describes one expense to be allocated.
type Request struct {
	// Amount is the expense total in minor units, > 0.
	Amount int64

	// Policy selects the allocation algorithm.
	Policy models.SplitPolicy

	// Participants is the set of users splitting the expense.
	// Order does not matter; allocation uses a stable sort by ID.
	Participants []string

	// Percentages maps participant ID to their percentage share, e.g. 33.5.
	// Required for the percentage policy.
	Percentages map[string]float64

	// Amounts maps participant ID to an explicit minor-unit share.
	// Required for the custom policy.
	Amounts map[string]int64
}

// Allocate computes the owed share per participant. The returned map covers
// exactly the request's participants and its values sum to Amount.
func Allocate(req Request) (map[string]int64, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.Participants) == 0 {
		return nil, ErrNoParticipants
	}

	participants := append([]string(nil), req.Participants...)
	sort.Strings(participants)

	switch req.Policy {
	case models.SplitPolicyEqual:
		return allocateEqual(req.Amount, participants), nil
	case models.SplitPolicyPercentage:
		return allocatePercentage(req.Amount, participants, req.Percentages)
	case models.SplitPolicyCustom:
		return allocateCustom(req.Amount, participants, req.Amounts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, req.Policy)
	}
}

// allocateEqual splits amount evenly, handing the remainder minor units one
// each to the first r participants in stable ID order.
func allocateEqual(amount int64, participants []string) map[string]int64 {
	n := int64(len(participants))
	base := amount / n
	remainder := amount % n

	shares := make(map[string]int64, n)
	for i, p := range participants {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[p] = share
	}
	return shares
}

// allocatePercentage computes floor(amount * pct) per participant with
// percentages resolved to basis points, then assigns the leftover minor units
// to the last participant in stable order so the total stays exact.
func allocatePercentage(amount int64, participants []string, percentages map[string]float64) (map[string]int64, error) {
	var sumBP int64
	bps := make(map[string]int64, len(participants))
	for _, p := range participants {
		pct, ok := percentages[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingShare, p)
		}
		if pct < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeShare, p)
		}
		bp := int64(pct*100 + 0.5)
		bps[p] = bp
		sumBP += bp
	}

	if sumBP < fullShareBasisPoints-percentEpsilonBP || sumBP > fullShareBasisPoints+percentEpsilonBP {
		return nil, fmt.Errorf("%w: got %.2f%%", ErrBadPercentageSum, float64(sumBP)/100)
	}

	shares := make(map[string]int64, len(participants))
	var allocated int64
	for i, p := range participants {
		if i == len(participants)-1 {
			// last participant absorbs the rounding remainder
			shares[p] = amount - allocated
			break
		}
		share := amount * bps[p] / fullShareBasisPoints
		shares[p] = share
		allocated += share
	}

	for _, p := range participants {
		if shares[p] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeShare, p)
		}
	}
	return shares, nil
}

// allocateCustom takes explicit shares, which must sum exactly to amount.
func allocateCustom(amount int64, participants []string, amounts map[string]int64) (map[string]int64, error) {
	shares := make(map[string]int64, len(participants))
	var sum int64
	for _, p := range participants {
		share, ok := amounts[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingShare, p)
		}
		if share < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeShare, p)
		}
		shares[p] = share
		sum += share
	}

	if sum != amount {
		return nil, fmt.Errorf("%w: shares sum to %d, amount is %d", ErrSharesMismatch, sum, amount)
	}
	return shares, nil
}
