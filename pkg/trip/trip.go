// Package trip records shared trip spending and settles it between participants.
package trip

import (
	"fmt"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/adamkim-dev/tripsaver/pkg/ledger"
	"github.com/adamkim-dev/tripsaver/pkg/split"
)

var (
	ErrTripNotFound       = apperr.New(apperr.ErrNotFound, "trip not found")
	ErrActivityNotFound   = apperr.New(apperr.ErrNotFound, "activity not found")
	ErrUnknownParticipant = apperr.New(apperr.ErrNotFound, "user is not a participant of this trip")
	ErrTripNotActive      = apperr.New(apperr.ErrState, "trip is not on-going")
	ErrTripEnded          = apperr.New(apperr.ErrState, "trip has already ended")
	ErrInvalidTransition  = apperr.New(apperr.ErrState, "invalid trip status transition")
	ErrStatusConflict     = apperr.New(apperr.ErrState, "trip status was changed concurrently")
	ErrInvalidTrip        = apperr.New(apperr.ErrValidation, "invalid trip")
	ErrInvalidPayment     = apperr.New(apperr.ErrValidation, "invalid payment")
	ErrInvalidActivity    = apperr.New(apperr.ErrValidation, "invalid activity")
)

type Status string

const (
	Planned Status = "planned"
	OnGoing Status = "on-going"
	Ended   Status = "ended"
)

// ParseStatus accepts the canonical names and the older "planed" spelling.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(Planned), "planed":
		return Planned, nil
	case string(OnGoing):
		return OnGoing, nil
	case string(Ended):
		return Ended, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTrip, s)
}

type Trip struct {
	Id           string
	Name         string
	Date         time.Time
	Status       Status
	CreatedBy    int
	Participants []Participant
	Payers       []Payer
	// PaymentHistory holds payment ids in the order they were recorded.
	PaymentHistory []string
}

type Participant struct {
	UserId            int
	IsPaid            bool
	TotalMoneyPerUser float64
	PaidAmount        float64
}

type Payer struct {
	UserId     int
	SpentMoney float64
}

type Activity struct {
	Id           string
	TripId       string
	Name         string
	TotalMoney   float64
	PayerId      int
	Participants []ActivityParticipant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ActivityParticipant struct {
	UserId            int
	TotalMoneyPerUser float64
}

// Payment is immutable once recorded. Refunds carry a negative amount.
type Payment struct {
	Id          string
	TripId      string
	UserId      int
	Amount      float64
	PaymentDate time.Time
	Note        string
}

func (t Trip) ParticipantIds() []int {
	ids := make([]int, len(t.Participants))
	for i, p := range t.Participants {
		ids[i] = p.UserId
	}
	return ids
}

func (t Trip) Participant(userId int) (Participant, bool) {
	for _, p := range t.Participants {
		if p.UserId == userId {
			return p, true
		}
	}
	return Participant{}, false
}

func (t Trip) HasParticipant(userId int) bool {
	_, ok := t.Participant(userId)
	return ok
}

func (a Activity) Shares() []split.Share {
	shares := make([]split.Share, len(a.Participants))
	for i, p := range a.Participants {
		shares[i] = split.Share{UserId: p.UserId, Amount: p.TotalMoneyPerUser}
	}
	return shares
}

// Ledger folds the trip's activities and payments into balances.
func Ledger(t Trip, activities []Activity, payments []Payment) ledger.Ledger {
	in := ledger.Inputs{
		Participants: t.ParticipantIds(),
		Payers:       make(map[int]float64, len(t.Payers)),
	}
	for _, p := range t.Payers {
		in.Payers[p.UserId] += p.SpentMoney
	}
	for _, a := range activities {
		in.Activities = append(in.Activities, a.Shares())
	}
	for _, p := range payments {
		in.Payments = append(in.Payments, ledger.Payment{UserId: p.UserId, Amount: p.Amount})
	}
	return ledger.Compute(in)
}
