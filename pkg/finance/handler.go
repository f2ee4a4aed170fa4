package finance

import (
	"context"
	"net/http"

	"github.com/adamkim-dev/tripsaver/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type FixedExpenseDTO struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
}

type DebtDTO struct {
	Id              string  `json:"id"`
	Creditor        string  `json:"creditor"`
	AmountRemaining float64 `json:"amountRemaining"`
	MonthlyPayment  float64 `json:"monthlyPayment"`
}

type LoanDTO struct {
	Id              string  `json:"id"`
	Borrower        string  `json:"borrower"`
	AmountRemaining float64 `json:"amountRemaining"`
	MonthlyCollect  float64 `json:"monthlyCollect"`
}

type SavingPlanDTO struct {
	Id                 string   `json:"id"`
	Type               string   `json:"type"`
	PercentageOfSalary *float64 `json:"percentageOfSalary,omitempty"`
	FixedAmount        *float64 `json:"fixedAmount,omitempty"`
}

type RecordsDTO struct {
	FixedExpenses []FixedExpenseDTO `json:"fixedExpenses"`
	Debts         []DebtDTO         `json:"debts"`
	Loans         []LoanDTO         `json:"loans"`
	SavingPlans   []SavingPlanDTO   `json:"savingPlans"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetRecords godoc
// @Summary Get all finance records of the current user
// @Tags Finance
// @Produce json
// @Success 200 {object} RecordsDTO
// @Router /api/finance [get]
// @Security XUserId
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.GetRecords(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, RecordsDTO{
		FixedExpenses: mapAll(records.FixedExpenses, fixedExpenseToDTO),
		Debts:         mapAll(records.Debts, debtToDTO),
		Loans:         mapAll(records.Loans, loanToDTO),
		SavingPlans:   mapAll(records.SavingPlans, savingPlanToDTO),
	})
}

// ListFixedExpenses godoc
// @Summary List fixed expenses
// @Tags Finance
// @Produce json
// @Success 200 {array} FixedExpenseDTO
// @Router /api/finance/fixed-expense [get]
// @Security XUserId
func (h *Handler) ListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	listResource(w, r, h.service.ListFixedExpenses, fixedExpenseToDTO)
}

// CreateFixedExpense godoc
// @Summary Create a fixed expense
// @Description Weekly amounts are converted to monthly when the allowance is computed.
// @Tags Finance
// @Accept json
// @Produce json
// @Param expense body FixedExpenseDTO true "Fixed expense"
// @Success 201 {object} FixedExpenseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid record"
// @Router /api/finance/fixed-expense [post]
// @Security XUserId
func (h *Handler) CreateFixedExpense(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.service.CreateFixedExpense, dtoToFixedExpense, fixedExpenseToDTO)
}

// UpdateFixedExpense godoc
// @Summary Update a fixed expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param expense body FixedExpenseDTO true "Fixed expense"
// @Success 200 {object} FixedExpenseDTO
// @Router /api/finance/fixed-expense/{id} [put]
// @Security XUserId
func (h *Handler) UpdateFixedExpense(w http.ResponseWriter, r *http.Request) {
	updateResource(w, r, h.service.UpdateFixedExpense, dtoToFixedExpense, fixedExpenseToDTO)
}

// DeleteFixedExpense godoc
// @Summary Delete a fixed expense
// @Tags Finance
// @Param id path string true "Record ID"
// @Success 204 "No Content"
// @Router /api/finance/fixed-expense/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteFixedExpense(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, h.service.DeleteFixedExpense)
}

// ListDebts godoc
// @Summary List debts
// @Tags Finance
// @Produce json
// @Success 200 {array} DebtDTO
// @Router /api/finance/debt [get]
// @Security XUserId
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	listResource(w, r, h.service.ListDebts, debtToDTO)
}

// CreateDebt godoc
// @Summary Create a debt
// @Tags Finance
// @Accept json
// @Produce json
// @Param debt body DebtDTO true "Debt"
// @Success 201 {object} DebtDTO
// @Router /api/finance/debt [post]
// @Security XUserId
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.service.CreateDebt, dtoToDebt, debtToDTO)
}

// UpdateDebt godoc
// @Summary Update a debt
// @Tags Finance
// @Param id path string true "Record ID"
// @Param debt body DebtDTO true "Debt"
// @Success 200 {object} DebtDTO
// @Router /api/finance/debt/{id} [put]
// @Security XUserId
func (h *Handler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	updateResource(w, r, h.service.UpdateDebt, dtoToDebt, debtToDTO)
}

// DeleteDebt godoc
// @Summary Delete a debt
// @Tags Finance
// @Param id path string true "Record ID"
// @Success 204 "No Content"
// @Router /api/finance/debt/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, h.service.DeleteDebt)
}

// ListLoans godoc
// @Summary List loans given to others
// @Tags Finance
// @Produce json
// @Success 200 {array} LoanDTO
// @Router /api/finance/loan [get]
// @Security XUserId
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	listResource(w, r, h.service.ListLoans, loanToDTO)
}

// CreateLoan godoc
// @Summary Create a loan
// @Tags Finance
// @Accept json
// @Produce json
// @Param loan body LoanDTO true "Loan"
// @Success 201 {object} LoanDTO
// @Router /api/finance/loan [post]
// @Security XUserId
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.service.CreateLoan, dtoToLoan, loanToDTO)
}

// UpdateLoan godoc
// @Summary Update a loan
// @Tags Finance
// @Param id path string true "Record ID"
// @Param loan body LoanDTO true "Loan"
// @Success 200 {object} LoanDTO
// @Router /api/finance/loan/{id} [put]
// @Security XUserId
func (h *Handler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	updateResource(w, r, h.service.UpdateLoan, dtoToLoan, loanToDTO)
}

// DeleteLoan godoc
// @Summary Delete a loan
// @Tags Finance
// @Param id path string true "Record ID"
// @Success 204 "No Content"
// @Router /api/finance/loan/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, h.service.DeleteLoan)
}

// ListSavingPlans godoc
// @Summary List saving plans
// @Tags Finance
// @Produce json
// @Success 200 {array} SavingPlanDTO
// @Router /api/finance/saving-plan [get]
// @Security XUserId
func (h *Handler) ListSavingPlans(w http.ResponseWriter, r *http.Request) {
	listResource(w, r, h.service.ListSavingPlans, savingPlanToDTO)
}

// CreateSavingPlan godoc
// @Summary Create a saving plan
// @Description Exactly one of percentageOfSalary or fixedAmount must be set.
// @Tags Finance
// @Accept json
// @Produce json
// @Param plan body SavingPlanDTO true "Saving plan"
// @Success 201 {object} SavingPlanDTO
// @Router /api/finance/saving-plan [post]
// @Security XUserId
func (h *Handler) CreateSavingPlan(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.service.CreateSavingPlan, dtoToSavingPlan, savingPlanToDTO)
}

// UpdateSavingPlan godoc
// @Summary Update a saving plan
// @Tags Finance
// @Param id path string true "Record ID"
// @Param plan body SavingPlanDTO true "Saving plan"
// @Success 200 {object} SavingPlanDTO
// @Router /api/finance/saving-plan/{id} [put]
// @Security XUserId
func (h *Handler) UpdateSavingPlan(w http.ResponseWriter, r *http.Request) {
	updateResource(w, r, h.service.UpdateSavingPlan, dtoToSavingPlan, savingPlanToDTO)
}

// DeleteSavingPlan godoc
// @Summary Delete a saving plan
// @Tags Finance
// @Param id path string true "Record ID"
// @Success 204 "No Content"
// @Router /api/finance/saving-plan/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteSavingPlan(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, h.service.DeleteSavingPlan)
}

func listResource[T, D any](w http.ResponseWriter, r *http.Request,
	list func(context.Context) ([]T, error), toDTO func(T) D) {
	items, err := list(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, mapAll(items, toDTO))
}

func createResource[T, D any](w http.ResponseWriter, r *http.Request,
	create func(context.Context, T) (T, error), fromDTO func(string, D) T, toDTO func(T) D) {
	var dto D
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	created, err := create(r.Context(), fromDTO("", dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

func updateResource[T, D any](w http.ResponseWriter, r *http.Request,
	update func(context.Context, T) (T, error), fromDTO func(string, D) T, toDTO func(T) D) {
	id := mux.Vars(r)["id"]
	var dto D
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	log.Debugf("Updating finance record %s", id)
	updated, err := update(r.Context(), fromDTO(id, dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(updated))
}

func deleteResource(w http.ResponseWriter, r *http.Request, del func(context.Context, string) error) {
	if err := del(r.Context(), mux.Vars(r)["id"]); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapAll[T, D any](items []T, fn func(T) D) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func fixedExpenseToDTO(e FixedExpense) FixedExpenseDTO {
	return FixedExpenseDTO{Id: e.Id, Name: e.Name, Amount: e.Amount, Frequency: string(e.Frequency)}
}

func dtoToFixedExpense(id string, dto FixedExpenseDTO) FixedExpense {
	return FixedExpense{Id: id, Name: dto.Name, Amount: dto.Amount, Frequency: Frequency(dto.Frequency)}
}

func debtToDTO(d Debt) DebtDTO {
	return DebtDTO{Id: d.Id, Creditor: d.Creditor, AmountRemaining: d.AmountRemaining, MonthlyPayment: d.MonthlyPayment}
}

func dtoToDebt(id string, dto DebtDTO) Debt {
	return Debt{Id: id, Creditor: dto.Creditor, AmountRemaining: dto.AmountRemaining, MonthlyPayment: dto.MonthlyPayment}
}

func loanToDTO(l Loan) LoanDTO {
	return LoanDTO{Id: l.Id, Borrower: l.Borrower, AmountRemaining: l.AmountRemaining, MonthlyCollect: l.MonthlyCollect}
}

func dtoToLoan(id string, dto LoanDTO) Loan {
	return Loan{Id: id, Borrower: dto.Borrower, AmountRemaining: dto.AmountRemaining, MonthlyCollect: dto.MonthlyCollect}
}

func savingPlanToDTO(p SavingPlan) SavingPlanDTO {
	return SavingPlanDTO{Id: p.Id, Type: string(p.Type), PercentageOfSalary: p.PercentageOfSalary, FixedAmount: p.FixedAmount}
}

func dtoToSavingPlan(id string, dto SavingPlanDTO) SavingPlan {
	return SavingPlan{Id: id, Type: SavingPlanType(dto.Type), PercentageOfSalary: dto.PercentageOfSalary, FixedAmount: dto.FixedAmount}
}
