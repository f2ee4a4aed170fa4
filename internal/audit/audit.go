package audit

import (
	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Subscribe writes one structured log entry per money movement and status
// change. Forced closes are logged as warnings. The returned function removes
// every subscription again.
func Subscribe(bus *event_bus.EventBus, logger log.FieldLogger) (unsubscribe func()) {
	logger = logger.WithField("audit", true)
	unsubscribers := []func(){
		event_bus.SubscribeTyped(bus, event_bus.TripPaymentRecorded,
			func(e event_bus.EventT[event_bus.PaymentRecorded]) error {
				logger.WithFields(log.Fields{
					"event":   string(e.Type),
					"trip":    e.Data.TripId,
					"payment": e.Data.PaymentId,
					"user":    e.Data.UserId,
					"amount":  e.Data.Amount,
					"isPaid":  e.Data.IsPaid,
				}).Info("payment recorded")
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.TripActivityRecorded,
			func(e event_bus.EventT[event_bus.ActivityRecorded]) error {
				logger.WithFields(log.Fields{
					"event":    string(e.Type),
					"trip":     e.Data.TripId,
					"activity": e.Data.ActivityId,
					"payer":    e.Data.PayerId,
					"amount":   e.Data.TotalMoney,
				}).Info("activity recorded")
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.TripStatusChanged,
			func(e event_bus.EventT[event_bus.TripStatusUpdated]) error {
				entry := logger.WithFields(log.Fields{
					"event":  string(e.Type),
					"trip":   e.Data.TripId,
					"from":   e.Data.From,
					"to":     e.Data.To,
					"forced": e.Data.Forced,
				})
				if e.Data.Forced {
					entry.Warn("trip force-ended with open balances")
				} else {
					entry.Info("trip status changed")
				}
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.AllowanceRecalculated,
			func(e event_bus.EventT[event_bus.DailyAllowanceUpdated]) error {
				logger.WithFields(log.Fields{
					"event":          string(e.Type),
					"user":           e.Data.UserId,
					"dailyAllowance": e.Data.DailyAllowance,
				}).Info("daily allowance recalculated")
				return nil
			}),
	}
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}
