package trip

import (
	"fmt"
	"strings"

	"github.com/adamkim-dev/tripsaver/pkg/ledger"
)

var ErrUnsettled = fmt.Errorf("%w: trip has unsettled balances", ErrInvalidTransition)

// UnsettledError lists the participants blocking a trip from ending.
type UnsettledError struct {
	Balances []ledger.Entry
}

func (e *UnsettledError) Error() string {
	parts := make([]string, len(e.Balances))
	for i, b := range e.Balances {
		parts[i] = fmt.Sprintf("user %d: %.2f", b.UserId, b.Balance)
	}
	return fmt.Sprintf("trip has unsettled balances (%s)", strings.Join(parts, ", "))
}

func (e *UnsettledError) Unwrap() error { return ErrUnsettled }

func (e *UnsettledError) Details() any { return e.Balances }

var lifecycle = []Status{Planned, OnGoing, Ended}

// NextStatus returns the status following s. Ended has no successor.
func NextStatus(s Status) (Status, error) {
	for i, candidate := range lifecycle {
		if candidate != s {
			continue
		}
		if i == len(lifecycle)-1 {
			return "", ErrTripEnded
		}
		return lifecycle[i+1], nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, s)
}

// CheckTransition allows single forward steps only. Ending a trip requires every
// participant to be settled unless force is set.
func CheckTransition(from, to Status, l ledger.Ledger, force bool) error {
	next, err := NextStatus(from)
	if err != nil {
		return err
	}
	if to != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if to == Ended && !force {
		if unsettled := l.Unsettled(); len(unsettled) > 0 {
			return &UnsettledError{Balances: unsettled}
		}
	}
	return nil
}
