package spending

import (
	"net/http"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/rest"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type SpendingDTO struct {
	Id          string  `json:"id"`
	Date        string  `json:"date"`
	AmountSpent float64 `json:"amountSpent"`
}

type Handler struct {
	service  Service
	clock    utils.Clock
	renderer Renderer
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock, renderer: NewCsvRenderer()}
}

// LogSpending godoc
// @Summary Log the amount spent on a day
// @Description Logging a date again replaces its amount. Future dates are rejected with 409.
// @Tags Spending
// @Accept json
// @Produce json
// @Param spending body SpendingDTO true "Spending"
// @Success 200 {object} SpendingDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount or date"
// @Failure 409 {object} rest.ErrorResponse "Future date"
// @Router /api/spending [put]
// @Security XUserId
func (h *Handler) LogSpending(w http.ResponseWriter, r *http.Request) {
	var dto SpendingDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	date, ok := parseDate(w, dto.Date)
	if !ok {
		return
	}
	stored, err := h.service.LogSpending(r.Context(), date, dto.AmountSpent)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(stored))
}

// GetSpending godoc
// @Summary Get the spending logged for a day
// @Tags Spending
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} SpendingDTO
// @Failure 404 {object} rest.ErrorResponse "Nothing logged"
// @Router /api/spending/{date} [get]
// @Security XUserId
func (h *Handler) GetSpending(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}
	entry, err := h.service.GetSpending(r.Context(), date)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(entry))
}

// ListSpending godoc
// @Summary List logged spending in a date range
// @Description Defaults to the last 30 days up to today. Send Accept: text/csv for a spreadsheet export with a total row.
// @Tags Spending
// @Produce json
// @Produce text/csv
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {array} SpendingDTO
// @Router /api/spending [get]
// @Security XUserId
func (h *Handler) ListSpending(w http.ResponseWriter, r *http.Request) {
	to := utils.Today(h.clock)
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, ok := parseDate(w, v)
		if !ok {
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, ok := parseDate(w, v)
		if !ok {
			return
		}
		to = parsed
	}
	log.Debugf("Listing spending from %s to %s", from.Format(utils.DateLayout), to.Format(utils.DateLayout))

	entries, err := h.service.ListSpending(r.Context(), from, to)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if r.Header.Get("Accept") == "text/csv" {
		body, err := h.renderer.Render(entries)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if _, err := w.Write([]byte(body)); err != nil {
			log.Errorf("Failed to write csv response: %v", err)
		}
		return
	}
	dtos := make([]SpendingDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// DeleteSpending godoc
// @Summary Remove the spending logged for a day
// @Tags Spending
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204 "No Content"
// @Router /api/spending/{date} [delete]
// @Security XUserId
func (h *Handler) DeleteSpending(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}
	if err := h.service.DeleteSpending(r.Context(), date); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDate(w http.ResponseWriter, s string) (time.Time, bool) {
	date, err := utils.ParseDate(s)
	if err != nil {
		rest.WriteBadRequest(w, "Invalid date, expected YYYY-MM-DD", s)
		return time.Time{}, false
	}
	return date, true
}

func toDTO(e DailySpendingLog) SpendingDTO {
	return SpendingDTO{Id: e.Id, Date: e.Date.Format(utils.DateLayout), AmountSpent: e.AmountSpent}
}
