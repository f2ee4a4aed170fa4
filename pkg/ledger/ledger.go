// Package ledger folds a trip's activities and payment events into per-participant balances.
package ledger

import (
	"sort"

	"github.com/adamkim-dev/tripsaver/pkg/split"
	"github.com/shopspring/decimal"
)

// SettlementTolerance is the largest absolute balance still considered settled.
const SettlementTolerance = 0.01

var tolerance = decimal.NewFromFloat(SettlementTolerance)

type Payment struct {
	UserId int
	// Amount is signed, refunds are negative.
	Amount float64
}

type Inputs struct {
	Participants []int
	// Payers maps a payer to the money they fronted for activities.
	Payers     map[int]float64
	Activities [][]split.Share
	Payments   []Payment
}

type Entry struct {
	UserId            int     `json:"userId"`
	TotalToPay        float64 `json:"totalToPay"`
	SpentAsPayer      float64 `json:"spentAsPayer"`
	TotalPaidIn       float64 `json:"totalPaidIn"`
	TotalContribution float64 `json:"totalContribution"`
	// Balance above zero means the user owes, below zero means the user is owed.
	Balance     float64 `json:"balance"`
	Participant bool    `json:"participant"`
}

func (e Entry) Settled() bool {
	return decimal.NewFromFloat(e.Balance).Abs().LessThan(tolerance)
}

type Ledger struct {
	Entries []Entry
}

type Transfer struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Amount float64 `json:"amount"`
}

type accumulator struct {
	toPay, spent, paidIn decimal.Decimal
	participant          bool
}

// Compute builds the ledger. Trip participants come first in their given order,
// anyone else touched by an activity, payer record or payment follows by id.
func Compute(in Inputs) Ledger {
	acc := map[int]*accumulator{}
	get := func(userId int) *accumulator {
		a, ok := acc[userId]
		if !ok {
			a = &accumulator{}
			acc[userId] = a
		}
		return a
	}

	for _, id := range in.Participants {
		get(id).participant = true
	}
	for _, shares := range in.Activities {
		for _, s := range shares {
			a := get(s.UserId)
			a.toPay = a.toPay.Add(decimal.NewFromFloat(s.Amount))
		}
	}
	for id, spent := range in.Payers {
		a := get(id)
		a.spent = a.spent.Add(decimal.NewFromFloat(spent))
	}
	for _, p := range in.Payments {
		a := get(p.UserId)
		a.paidIn = a.paidIn.Add(decimal.NewFromFloat(p.Amount))
	}

	order := make([]int, 0, len(acc))
	seen := make(map[int]bool, len(acc))
	for _, id := range in.Participants {
		if !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var others []int
	for id := range acc {
		if !seen[id] {
			others = append(others, id)
		}
	}
	sort.Ints(others)
	order = append(order, others...)

	entries := make([]Entry, 0, len(order))
	for _, id := range order {
		a := acc[id]
		contribution := a.spent.Add(a.paidIn)
		entries = append(entries, Entry{
			UserId:            id,
			TotalToPay:        a.toPay.InexactFloat64(),
			SpentAsPayer:      a.spent.InexactFloat64(),
			TotalPaidIn:       a.paidIn.InexactFloat64(),
			TotalContribution: contribution.InexactFloat64(),
			Balance:           a.toPay.Sub(contribution).InexactFloat64(),
			Participant:       a.participant,
		})
	}
	return Ledger{Entries: entries}
}

func (l Ledger) Entry(userId int) (Entry, bool) {
	for _, e := range l.Entries {
		if e.UserId == userId {
			return e, true
		}
	}
	return Entry{}, false
}

// Unsettled lists trip participants whose balance is outside the tolerance.
func (l Ledger) Unsettled() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Participant && !e.Settled() {
			out = append(out, e)
		}
	}
	return out
}

func (l Ledger) IsSettled() bool {
	return len(l.Unsettled()) == 0
}

// NeedToPay lists everyone who still owes money to the trip.
func (l Ledger) NeedToPay() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if !e.Settled() && e.Balance > 0 {
			out = append(out, e)
		}
	}
	return out
}

// NeedRefund lists everyone the trip owes money to.
func (l Ledger) NeedRefund() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if !e.Settled() && e.Balance < 0 {
			out = append(out, e)
		}
	}
	return out
}

// TotalBalance sums every entry's balance.
func (l Ledger) TotalBalance() float64 {
	total := decimal.Zero
	for _, e := range l.Entries {
		total = total.Add(decimal.NewFromFloat(e.Balance))
	}
	return total.InexactFloat64()
}

type party struct {
	userId int
	amount decimal.Decimal
}

// SuggestTransfers pairs the largest debtor with the largest creditor until
// every remaining balance is within tolerance.
func (l Ledger) SuggestTransfers() []Transfer {
	var debtors, creditors []party
	for _, e := range l.Entries {
		if e.Settled() {
			continue
		}
		b := decimal.NewFromFloat(e.Balance)
		if b.IsPositive() {
			debtors = append(debtors, party{e.UserId, b})
		} else {
			creditors = append(creditors, party{e.UserId, b.Neg()})
		}
	}
	byAmount := func(ps []party) {
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].amount.Equal(ps[j].amount) {
				return ps[i].userId < ps[j].userId
			}
			return ps[i].amount.GreaterThan(ps[j].amount)
		})
	}
	byAmount(debtors)
	byAmount(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.GreaterThanOrEqual(tolerance) {
			transfers = append(transfers, Transfer{
				From:   debtors[i].userId,
				To:     creditors[j].userId,
				Amount: amount.Round(2).InexactFloat64(),
			})
		}
		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.LessThan(tolerance) {
			i++
		}
		if creditors[j].amount.LessThan(tolerance) {
			j++
		}
	}
	return transfers
}
