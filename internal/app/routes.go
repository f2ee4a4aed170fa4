package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Trips
	r.HandleFunc("/api/trip", deps.TripHandler.ListTrips).Methods("GET")
	r.HandleFunc("/api/trip", deps.TripHandler.CreateTrip).Methods("POST")
	r.HandleFunc("/api/trip/{tripId}", deps.TripHandler.GetTrip).Methods("GET")
	r.HandleFunc("/api/trip/{tripId}", deps.TripHandler.UpdateTrip).Methods("PUT")
	r.HandleFunc("/api/trip/{tripId}", deps.TripHandler.DeleteTrip).Methods("DELETE")
	r.HandleFunc("/api/trip/{tripId}/settlement", deps.TripHandler.GetSettlement).Methods("GET")
	r.HandleFunc("/api/trip/{tripId}/status/advance", deps.TripHandler.AdvanceStatus).Methods("POST")
	r.HandleFunc("/api/trip/{tripId}/status/reopen", deps.TripHandler.ReopenTrip).Methods("POST")

	// Trip activities
	r.HandleFunc("/api/trip/{tripId}/activity", deps.TripHandler.ListActivities).Methods("GET")
	r.HandleFunc("/api/trip/{tripId}/activity", deps.TripHandler.RecordActivity).Methods("POST")
	r.HandleFunc("/api/trip/{tripId}/activity/{activityId}", deps.TripHandler.UpdateActivity).Methods("PUT")
	r.HandleFunc("/api/trip/{tripId}/activity/{activityId}", deps.TripHandler.DeleteActivity).Methods("DELETE")

	// Trip payments
	r.HandleFunc("/api/trip/{tripId}/payment", deps.TripHandler.ListPayments).Methods("GET")
	r.HandleFunc("/api/trip/{tripId}/payment", deps.TripHandler.RecordPayment).Methods("POST")
	r.HandleFunc("/api/trip/{tripId}/refund", deps.TripHandler.RecordRefund).Methods("POST")

	// Finance records
	r.HandleFunc("/api/finance", deps.FinanceHandler.GetRecords).Methods("GET")
	r.HandleFunc("/api/finance/fixed-expense", deps.FinanceHandler.ListFixedExpenses).Methods("GET")
	r.HandleFunc("/api/finance/fixed-expense", deps.FinanceHandler.CreateFixedExpense).Methods("POST")
	r.HandleFunc("/api/finance/fixed-expense/{id}", deps.FinanceHandler.UpdateFixedExpense).Methods("PUT")
	r.HandleFunc("/api/finance/fixed-expense/{id}", deps.FinanceHandler.DeleteFixedExpense).Methods("DELETE")
	r.HandleFunc("/api/finance/debt", deps.FinanceHandler.ListDebts).Methods("GET")
	r.HandleFunc("/api/finance/debt", deps.FinanceHandler.CreateDebt).Methods("POST")
	r.HandleFunc("/api/finance/debt/{id}", deps.FinanceHandler.UpdateDebt).Methods("PUT")
	r.HandleFunc("/api/finance/debt/{id}", deps.FinanceHandler.DeleteDebt).Methods("DELETE")
	r.HandleFunc("/api/finance/loan", deps.FinanceHandler.ListLoans).Methods("GET")
	r.HandleFunc("/api/finance/loan", deps.FinanceHandler.CreateLoan).Methods("POST")
	r.HandleFunc("/api/finance/loan/{id}", deps.FinanceHandler.UpdateLoan).Methods("PUT")
	r.HandleFunc("/api/finance/loan/{id}", deps.FinanceHandler.DeleteLoan).Methods("DELETE")
	r.HandleFunc("/api/finance/saving-plan", deps.FinanceHandler.ListSavingPlans).Methods("GET")
	r.HandleFunc("/api/finance/saving-plan", deps.FinanceHandler.CreateSavingPlan).Methods("POST")
	r.HandleFunc("/api/finance/saving-plan/{id}", deps.FinanceHandler.UpdateSavingPlan).Methods("PUT")
	r.HandleFunc("/api/finance/saving-plan/{id}", deps.FinanceHandler.DeleteSavingPlan).Methods("DELETE")

	// Daily spending
	r.HandleFunc("/api/spending", deps.SpendingHandler.LogSpending).Methods("PUT")
	r.HandleFunc("/api/spending", deps.SpendingHandler.ListSpending).Methods("GET")
	r.HandleFunc("/api/spending/{date}", deps.SpendingHandler.GetSpending).Methods("GET")
	r.HandleFunc("/api/spending/{date}", deps.SpendingHandler.DeleteSpending).Methods("DELETE")

	// Budget planner
	r.HandleFunc("/api/planner/salary", deps.PlannerHandler.UpdateSalary).Methods("PUT")
	r.HandleFunc("/api/planner/payday", deps.PlannerHandler.UpdatePayday).Methods("PUT")
	r.HandleFunc("/api/planner/recalculate", deps.PlannerHandler.RecalculateAllowance).Methods("POST")
	r.HandleFunc("/api/planner/summary", deps.PlannerHandler.GetSummary).Methods("GET")
	r.HandleFunc("/api/planner/projection", deps.PlannerHandler.GetProjection).Methods("GET")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/name-availability", deps.UserHandler.IsUsernameAvailable).Methods("GET").Queries("username", "{username}")
	r.HandleFunc("/api/user", deps.UserHandler.GetAvailableUsers).Methods("GET")
	r.HandleFunc("/api/user/{userUid}", deps.UserHandler.DeleteUser).Methods("DELETE")

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}
}
