package event_bus

import "time"

const (
	FinanceChanged        EventType = "finance.changed"
	BudgetInputsChanged   EventType = "user.budget_inputs.changed"
	TripPaymentRecorded   EventType = "trip.payment.recorded"
	TripActivityRecorded  EventType = "trip.activity.recorded"
	TripStatusChanged     EventType = "trip.status.changed"
	AllowanceRecalculated EventType = "planner.allowance.recalculated"
)

// FinanceRecordsChanged is published after a fixed expense, debt, loan or saving plan is written.
type FinanceRecordsChanged struct {
	UserId int
	Kind   string
	Id     string
}

// UserBudgetInputsChanged is published after salary or payday changes.
type UserBudgetInputsChanged struct {
	UserId int
}

type PaymentRecorded struct {
	TripId    string
	PaymentId string
	UserId    int
	Amount    float64
	IsPaid    bool
}

type ActivityRecorded struct {
	TripId     string
	ActivityId string
	PayerId    int
	TotalMoney float64
}

type TripStatusUpdated struct {
	TripId string
	From   string
	To     string
	Forced bool
	At     time.Time
}

type DailyAllowanceUpdated struct {
	UserId         int
	DailyAllowance float64
}
