package planner

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*fixture, *mux.Router) {
	f, teardown := setup(t)
	t.Cleanup(teardown)
	h := NewHandler(f.planner, f.users)
	r := mux.NewRouter()
	r.HandleFunc("/api/planner/salary", h.UpdateSalary).Methods(http.MethodPut)
	r.HandleFunc("/api/planner/payday", h.UpdatePayday).Methods(http.MethodPut)
	r.HandleFunc("/api/planner/recalculate", h.RecalculateAllowance).Methods(http.MethodPost)
	r.HandleFunc("/api/planner/summary", h.GetSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/planner/projection", h.GetProjection).Methods(http.MethodGet)
	return f, r
}

func (f *fixture) do(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body)).WithContext(f.ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_BudgetFlow(t *testing.T) {
	f, r := setupRouter(t)
	f.seedExample(t)

	w := f.do(r, http.MethodPut, "/api/planner/payday", `{"payday":25}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var inputs BudgetInputsDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&inputs))
	assert.Equal(t, 25, *inputs.Payday)

	w = f.do(r, http.MethodPut, "/api/planner/payday", `{"payday":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	inputs = BudgetInputsDTO{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&inputs))
	assert.Nil(t, inputs.Payday)
	assert.Equal(t, 70.0, inputs.DailyAllowance)

	w = f.do(r, http.MethodPost, "/api/planner/recalculate", "")
	require.Equal(t, http.StatusOK, w.Code)
	var result AllowanceDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 70.0, result.DailyAllowance)
	assert.Equal(t, 30, result.CycleLengthDays)

	w = f.do(r, http.MethodGet, "/api/planner/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 500.0, body["totalFixedExpenses"])
	assert.Equal(t, 200.0, body["totalMonthlyDebtPayment"])
	assert.Equal(t, 0.0, body["totalMonthlyLoanIncome"])
	assert.Equal(t, 200.0, body["totalMonthlySavingPlan"])
	assert.Equal(t, 70.0, body["dailyAllowance"])
	assert.Equal(t, 0.0, body["currentMonthSpending"])
	assert.Equal(t, 700.0, body["remainingDailyBudget"])
	assert.Equal(t, map[string]any{
		"start":         "2025-06-01",
		"end":           "2025-06-30",
		"lengthDays":    30.0,
		"daysElapsed":   10.0,
		"calendarMonth": true,
	}, body["cycle"])

	w = f.do(r, http.MethodGet, "/api/planner/projection?spendRate=80", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, 300.0, p["projectedOverspend"])
	assert.Equal(t, 20.0, p["daysRemaining"])
}

func TestHandler_Errors(t *testing.T) {
	f, r := setupRouter(t)

	w := f.do(r, http.MethodPost, "/api/planner/recalculate", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "salary is required")

	w = f.do(r, http.MethodPut, "/api/planner/salary", `{"salary":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(r, http.MethodPut, "/api/planner/payday", `{"payday":32}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(r, http.MethodGet, "/api/planner/projection?spendRate=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(r, http.MethodPut, "/api/planner/salary", `{"salary":3000}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(r, http.MethodGet, "/api/planner/projection?spendRate=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
