package planner

import (
	"context"
	"net/http"
	"strconv"

	"github.com/adamkim-dev/tripsaver/internal/rest"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/allowance"
	"github.com/adamkim-dev/tripsaver/pkg/payday"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	log "github.com/sirupsen/logrus"
)

// BudgetInputs updates the user fields the allowance depends on.
type BudgetInputs interface {
	UpdateSalary(ctx context.Context, salary *float64) (user.User, error)
	UpdatePayday(ctx context.Context, day *int) (user.User, error)
}

type SalaryDTO struct {
	Salary *float64 `json:"salary"`
}

type PaydayDTO struct {
	Payday *int `json:"payday"`
}

type BudgetInputsDTO struct {
	Salary         *float64 `json:"salary"`
	Payday         *int     `json:"payday"`
	DailyAllowance float64  `json:"dailyAllowance"`
}

type CycleDTO struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	LengthDays    int    `json:"lengthDays"`
	DaysElapsed   int    `json:"daysElapsed"`
	CalendarMonth bool   `json:"calendarMonth"`
}

type AllowanceDTO struct {
	allowance.MonthlyTotals
	Salary          float64 `json:"salary"`
	CycleLengthDays int     `json:"cycleLengthDays"`
	DailyAllowance  float64 `json:"dailyAllowance"`
}

type SummaryDTO struct {
	allowance.MonthlyTotals
	DailyAllowance       float64  `json:"dailyAllowance"`
	CurrentMonthSpending float64  `json:"currentMonthSpending"`
	RemainingDailyBudget float64  `json:"remainingDailyBudget"`
	Salary               *float64 `json:"salary"`
	Cycle                CycleDTO `json:"cycle"`
}

type Handler struct {
	service Service
	inputs  BudgetInputs
}

func NewHandler(service Service, inputs BudgetInputs) *Handler {
	return &Handler{service: service, inputs: inputs}
}

// UpdateSalary godoc
// @Summary Set or clear the monthly salary
// @Description The daily allowance is recalculated right away.
// @Tags Planner
// @Accept json
// @Produce json
// @Param salary body SalaryDTO true "Salary, null clears it"
// @Success 200 {object} BudgetInputsDTO
// @Router /api/planner/salary [put]
// @Security XUserId
func (h *Handler) UpdateSalary(w http.ResponseWriter, r *http.Request) {
	var dto SalaryDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.inputs.UpdateSalary(r.Context(), dto.Salary)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, inputsToDTO(u))
}

// UpdatePayday godoc
// @Summary Set or clear the payday
// @Description Days past the end of a short month fall on its last day.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payday body PaydayDTO true "Day of month 1-31, null clears it"
// @Success 200 {object} BudgetInputsDTO
// @Router /api/planner/payday [put]
// @Security XUserId
func (h *Handler) UpdatePayday(w http.ResponseWriter, r *http.Request) {
	var dto PaydayDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.inputs.UpdatePayday(r.Context(), dto.Payday)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, inputsToDTO(u))
}

// RecalculateAllowance godoc
// @Summary Recalculate and store the daily allowance
// @Tags Planner
// @Produce json
// @Success 200 {object} AllowanceDTO
// @Failure 400 {object} rest.ErrorResponse "Salary not set"
// @Router /api/planner/recalculate [post]
// @Security XUserId
func (h *Handler) RecalculateAllowance(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RecalculateAllowance(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, AllowanceDTO{
		MonthlyTotals:   result.MonthlyTotals,
		Salary:          result.Salary,
		CycleLengthDays: result.CycleLengthDays,
		DailyAllowance:  result.DailyAllowance,
	})
}

// GetSummary godoc
// @Summary Monthly totals, allowance and spending of the current cycle
// @Tags Planner
// @Produce json
// @Success 200 {object} SummaryDTO
// @Router /api/planner/summary [get]
// @Security XUserId
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SummaryDTO{
		MonthlyTotals:        summary.MonthlyTotals,
		DailyAllowance:       summary.DailyAllowance,
		CurrentMonthSpending: summary.CurrentMonthSpending,
		RemainingDailyBudget: summary.RemainingDailyBudget,
		Salary:               summary.Salary,
		Cycle:                cycleToDTO(summary.Cycle),
	})
}

// GetProjection godoc
// @Summary Project savings or overspend at the end of the cycle
// @Tags Planner
// @Produce json
// @Param spendRate query number false "Assumed daily spend, defaults to the allowance"
// @Success 200 {object} projection.Projection
// @Router /api/planner/projection [get]
// @Security XUserId
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	var rate *float64
	if v := r.URL.Query().Get("spendRate"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			rest.WriteBadRequest(w, "Invalid spendRate", v)
			return
		}
		rate = &parsed
	}
	log.Tracef("Projecting cycle with spend rate %v", rate)
	p, err := h.service.Projection(r.Context(), rate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, p)
}

func inputsToDTO(u user.User) BudgetInputsDTO {
	return BudgetInputsDTO{Salary: u.Salary, Payday: u.Payday, DailyAllowance: u.DailyAllowance}
}

func cycleToDTO(c payday.Cycle) CycleDTO {
	return CycleDTO{
		Start:         c.Start.Format(utils.DateLayout),
		End:           c.End.Format(utils.DateLayout),
		LengthDays:    c.LengthDays,
		DaysElapsed:   c.DaysElapsed,
		CalendarMonth: c.CalendarMonth,
	}
}
