// Package split divides one activity's cost between its participants.
package split

import (
	"fmt"
	"math"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/shopspring/decimal"
)

var ErrInvalidSplit = apperr.New(apperr.ErrValidation, "invalid split")

// shareTolerance bounds float drift when explicit shares are checked against the total.
const shareTolerance = 1e-6

type Share struct {
	UserId int
	Amount float64
}

type Request struct {
	TotalMoney float64
	// PayerId receives the rounding remainder when they take part. Zero means no payer preference.
	PayerId      int
	Participants []int
	// Explicit shares are used as given, e.g. when an edited activity already carries its split.
	Explicit []Share
}

// Split returns one share per participant, in participant order. Shares always sum to TotalMoney.
func Split(req Request) ([]Share, error) {
	if math.IsNaN(req.TotalMoney) || math.IsInf(req.TotalMoney, 0) || req.TotalMoney < 0 {
		return nil, fmt.Errorf("%w: total money must be a non-negative number", ErrInvalidSplit)
	}
	if len(req.Explicit) > 0 {
		return explicit(req)
	}
	if len(req.Participants) == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrInvalidSplit)
	}
	if dup, ok := firstDuplicate(req.Participants); ok {
		return nil, fmt.Errorf("%w: participant %d listed twice", ErrInvalidSplit, dup)
	}
	return equal(req), nil
}

func equal(req Request) []Share {
	total := decimal.NewFromFloat(req.TotalMoney)
	n := decimal.NewFromInt(int64(len(req.Participants)))
	base := total.Div(n).Truncate(2)
	remainder := total.Sub(base.Mul(n))

	remainderIdx := 0
	for i, id := range req.Participants {
		if req.PayerId != 0 && id == req.PayerId {
			remainderIdx = i
			break
		}
	}

	shares := make([]Share, len(req.Participants))
	for i, id := range req.Participants {
		amount := base
		if i == remainderIdx {
			amount = amount.Add(remainder)
		}
		shares[i] = Share{UserId: id, Amount: amount.InexactFloat64()}
	}
	return shares
}

func explicit(req Request) ([]Share, error) {
	ids := make([]int, len(req.Explicit))
	sum := decimal.Zero
	for i, s := range req.Explicit {
		if s.Amount < 0 || math.IsNaN(s.Amount) {
			return nil, fmt.Errorf("%w: share of participant %d is negative", ErrInvalidSplit, s.UserId)
		}
		ids[i] = s.UserId
		sum = sum.Add(decimal.NewFromFloat(s.Amount))
	}
	if dup, ok := firstDuplicate(ids); ok {
		return nil, fmt.Errorf("%w: participant %d listed twice", ErrInvalidSplit, dup)
	}
	diff := sum.Sub(decimal.NewFromFloat(req.TotalMoney)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(shareTolerance)) {
		return nil, fmt.Errorf("%w: shares sum to %s, expected %v", ErrInvalidSplit, sum.String(), req.TotalMoney)
	}
	out := make([]Share, len(req.Explicit))
	copy(out, req.Explicit)
	return out, nil
}

func firstDuplicate(ids []int) (int, bool) {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}

// ByUser indexes shares by participant.
func ByUser(shares []Share) map[int]float64 {
	m := make(map[int]float64, len(shares))
	for _, s := range shares {
		m[s.UserId] = s.Amount
	}
	return m
}

// Sum adds shares in decimal to avoid accumulating float error.
func Sum(shares []Share) float64 {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(decimal.NewFromFloat(s.Amount))
	}
	return total.InexactFloat64()
}
