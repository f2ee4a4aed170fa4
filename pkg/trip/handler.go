package trip

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/rest"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/ledger"
	"github.com/adamkim-dev/tripsaver/pkg/split"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TripDTO struct {
	Id             string           `json:"id"`
	Name           string           `json:"name"`
	Date           string           `json:"date"`
	Status         string           `json:"status"`
	CreatedBy      int              `json:"createdBy,omitempty"`
	Participants   []ParticipantDTO `json:"participants"`
	Payers         []PayerDTO       `json:"payers"`
	PaymentHistory []string         `json:"paymentHistory"`
}

type ParticipantDTO struct {
	UserId            int     `json:"userId"`
	IsPaid            bool    `json:"isPaid"`
	TotalMoneyPerUser float64 `json:"totalMoneyPerUser"`
	PaidAmount        float64 `json:"paidAmount"`
}

type PayerDTO struct {
	UserId     int     `json:"userId"`
	SpentMoney float64 `json:"spentMoney"`
}

type ActivityDTO struct {
	Id           string                   `json:"id"`
	TripId       string                   `json:"tripId"`
	Name         string                   `json:"name"`
	TotalMoney   float64                  `json:"totalMoney"`
	PayerId      int                      `json:"payerId"`
	Participants []ActivityParticipantDTO `json:"participants"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

type ActivityParticipantDTO struct {
	UserId            int     `json:"userId"`
	TotalMoneyPerUser float64 `json:"totalMoneyPerUser"`
}

// ActivityRequestDTO names participants for an equal split, or carries explicit shares.
type ActivityRequestDTO struct {
	Name         string                   `json:"name"`
	TotalMoney   float64                  `json:"totalMoney"`
	PayerId      int                      `json:"payerId"`
	Participants []int                    `json:"participants,omitempty"`
	Shares       []ActivityParticipantDTO `json:"shares,omitempty"`
}

type PaymentRequestDTO struct {
	UserId int     `json:"userId"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

type PaymentDTO struct {
	Id          string    `json:"id"`
	TripId      string    `json:"tripId"`
	UserId      int       `json:"userId"`
	Amount      float64   `json:"amount"`
	PaymentDate time.Time `json:"paymentDate"`
	Note        string    `json:"note,omitempty"`
}

type PaymentResultDTO struct {
	Payment     PaymentDTO     `json:"payment"`
	Participant ParticipantDTO `json:"participant"`
}

type SettlementDTO struct {
	TripId     string            `json:"tripId"`
	Status     string            `json:"status"`
	Settled    bool              `json:"settled"`
	Balances   []ledger.Entry    `json:"balances"`
	NeedToPay  []ledger.Entry    `json:"needToPay"`
	NeedRefund []ledger.Entry    `json:"needRefund"`
	Transfers  []ledger.Transfer `json:"transfers"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListTrips godoc
// @Summary List trips of the current user
// @Tags Trip
// @Produce json
// @Success 200 {array} TripDTO
// @Router /api/trip [get]
// @Security XUserId
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing trips")
	trips, err := h.service.ListTrips(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]TripDTO, 0, len(trips))
	for _, t := range trips {
		dtos = append(dtos, tripToDTO(t))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateTrip godoc
// @Summary Create a trip
// @Description Participants are given as userId entries, other participant fields are ignored.
// @Tags Trip
// @Accept json
// @Produce json
// @Param trip body TripDTO true "Trip"
// @Success 201 {object} TripDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid trip"
// @Router /api/trip [post]
// @Security XUserId
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var dto TripDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	date, err := utils.ParseDate(dto.Date)
	if err != nil {
		rest.WriteBadRequest(w, "Invalid date, expected YYYY-MM-DD", dto.Date)
		return
	}
	t := Trip{Name: dto.Name, Date: date}
	if dto.Status != "" {
		status, err := ParseStatus(dto.Status)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		t.Status = status
	}
	for _, p := range dto.Participants {
		t.Participants = append(t.Participants, Participant{UserId: p.UserId})
	}

	created, err := h.service.CreateTrip(r.Context(), t)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, tripToDTO(created))
}

// GetTrip godoc
// @Summary Get a trip
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {object} TripDTO
// @Failure 404 {object} rest.ErrorResponse "Trip not found"
// @Router /api/trip/{tripId} [get]
// @Security XUserId
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTrip(r.Context(), mux.Vars(r)["tripId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, tripToDTO(t))
}

// UpdateTrip godoc
// @Summary Rename or re-date a trip
// @Description Empty fields keep their current value.
// @Tags Trip
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param trip body TripDTO true "Trip"
// @Success 200 {object} TripDTO
// @Router /api/trip/{tripId} [put]
// @Security XUserId
func (h *Handler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var dto TripDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	var date time.Time
	if dto.Date != "" {
		parsed, err := utils.ParseDate(dto.Date)
		if err != nil {
			rest.WriteBadRequest(w, "Invalid date, expected YYYY-MM-DD", dto.Date)
			return
		}
		date = parsed
	}
	updated, err := h.service.UpdateTrip(r.Context(), mux.Vars(r)["tripId"], dto.Name, date)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, tripToDTO(updated))
}

// DeleteTrip godoc
// @Summary Delete a trip with its activities and payments
// @Tags Trip
// @Param tripId path string true "Trip ID"
// @Success 204 "No Content"
// @Router /api/trip/{tripId} [delete]
// @Security XUserId
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTrip(r.Context(), mux.Vars(r)["tripId"]); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivities godoc
// @Summary List a trip's activities
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {array} ActivityDTO
// @Router /api/trip/{tripId}/activity [get]
// @Security XUserId
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context(), mux.Vars(r)["tripId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]ActivityDTO, 0, len(activities))
	for _, a := range activities {
		dtos = append(dtos, activityToDTO(a))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// RecordActivity godoc
// @Summary Record a shared activity
// @Tags Trip
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param activity body ActivityRequestDTO true "Activity"
// @Success 201 {object} ActivityDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid split"
// @Failure 404 {object} rest.ErrorResponse "Unknown participant"
// @Failure 409 {object} rest.ErrorResponse "Trip is not on-going"
// @Router /api/trip/{tripId}/activity [post]
// @Security XUserId
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var dto ActivityRequestDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	activity, err := h.service.RecordActivity(r.Context(), mux.Vars(r)["tripId"], dtoToActivityInput(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, activityToDTO(activity))
}

// UpdateActivity godoc
// @Summary Edit an activity
// @Tags Trip
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param activityId path string true "Activity ID"
// @Param activity body ActivityRequestDTO true "Activity"
// @Success 200 {object} ActivityDTO
// @Router /api/trip/{tripId}/activity/{activityId} [put]
// @Security XUserId
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var dto ActivityRequestDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	vars := mux.Vars(r)
	activity, err := h.service.UpdateActivity(r.Context(), vars["tripId"], vars["activityId"], dtoToActivityInput(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, activityToDTO(activity))
}

// DeleteActivity godoc
// @Summary Delete an activity
// @Tags Trip
// @Param tripId path string true "Trip ID"
// @Param activityId path string true "Activity ID"
// @Success 204 "No Content"
// @Router /api/trip/{tripId}/activity/{activityId} [delete]
// @Security XUserId
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeleteActivity(r.Context(), vars["tripId"], vars["activityId"]); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPayments godoc
// @Summary List a trip's payment history
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {array} PaymentDTO
// @Router /api/trip/{tripId}/payment [get]
// @Security XUserId
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), mux.Vars(r)["tripId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, paymentToDTO(p))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// RecordPayment godoc
// @Summary Record a participant's payment into the trip
// @Tags Trip
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param payment body PaymentRequestDTO true "Payment"
// @Success 201 {object} PaymentResultDTO
// @Router /api/trip/{tripId}/payment [post]
// @Security XUserId
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	h.appendPayment(w, r, h.service.RecordPayment)
}

// RecordRefund godoc
// @Summary Refund money the trip owes a participant
// @Description The amount is positive and stored as a negative payment.
// @Tags Trip
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param refund body PaymentRequestDTO true "Refund"
// @Success 201 {object} PaymentResultDTO
// @Router /api/trip/{tripId}/refund [post]
// @Security XUserId
func (h *Handler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	h.appendPayment(w, r, h.service.RecordRefund)
}

type paymentFunc func(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error)

func (h *Handler) appendPayment(w http.ResponseWriter, r *http.Request, record paymentFunc) {
	var dto PaymentRequestDTO
	if !rest.DecodeJSON(w, r, &dto) {
		return
	}
	payment, participant, err := record(r.Context(), mux.Vars(r)["tripId"], dto.UserId, dto.Amount, dto.Note)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, PaymentResultDTO{
		Payment:     paymentToDTO(payment),
		Participant: participantToDTO(participant),
	})
}

// GetSettlement godoc
// @Summary Get the trip's balances and suggested transfers
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {object} SettlementDTO
// @Router /api/trip/{tripId}/settlement [get]
// @Security XUserId
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.service.GetSettlement(r.Context(), mux.Vars(r)["tripId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SettlementDTO{
		TripId:     settlement.TripId,
		Status:     string(settlement.Status),
		Settled:    settlement.Settled,
		Balances:   emptyIfNil(settlement.Balances),
		NeedToPay:  emptyIfNil(settlement.NeedToPay),
		NeedRefund: emptyIfNil(settlement.NeedRefund),
		Transfers:  emptyIfNil(settlement.Transfers),
	})
}

// AdvanceStatus godoc
// @Summary Move the trip to its next status
// @Description Ending a trip fails with 409 and the unsettled balances unless force=true.
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param force query bool false "End the trip even if balances are unsettled"
// @Success 200 {object} TripDTO
// @Failure 409 {object} rest.ErrorResponse "Unsettled balances or trip already ended"
// @Router /api/trip/{tripId}/status/advance [post]
// @Security XUserId
func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			rest.WriteBadRequest(w, "Invalid force parameter", v)
			return
		}
		force = parsed
	}
	t, err := h.service.AdvanceStatus(r.Context(), mux.Vars(r)["tripId"], force)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, tripToDTO(t))
}

// ReopenTrip godoc
// @Summary Reopen an ended trip
// @Tags Trip
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {object} TripDTO
// @Router /api/trip/{tripId}/status/reopen [post]
// @Security XUserId
func (h *Handler) ReopenTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.ReopenTrip(r.Context(), mux.Vars(r)["tripId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, tripToDTO(t))
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func tripToDTO(t Trip) TripDTO {
	dto := TripDTO{
		Id:             t.Id,
		Name:           t.Name,
		Date:           t.Date.Format(utils.DateLayout),
		Status:         string(t.Status),
		CreatedBy:      t.CreatedBy,
		Participants:   make([]ParticipantDTO, 0, len(t.Participants)),
		Payers:         make([]PayerDTO, 0, len(t.Payers)),
		PaymentHistory: emptyIfNil(t.PaymentHistory),
	}
	for _, p := range t.Participants {
		dto.Participants = append(dto.Participants, participantToDTO(p))
	}
	for _, p := range t.Payers {
		dto.Payers = append(dto.Payers, PayerDTO{UserId: p.UserId, SpentMoney: p.SpentMoney})
	}
	return dto
}

func participantToDTO(p Participant) ParticipantDTO {
	return ParticipantDTO{
		UserId:            p.UserId,
		IsPaid:            p.IsPaid,
		TotalMoneyPerUser: p.TotalMoneyPerUser,
		PaidAmount:        p.PaidAmount,
	}
}

func activityToDTO(a Activity) ActivityDTO {
	dto := ActivityDTO{
		Id:           a.Id,
		TripId:       a.TripId,
		Name:         a.Name,
		TotalMoney:   a.TotalMoney,
		PayerId:      a.PayerId,
		Participants: make([]ActivityParticipantDTO, 0, len(a.Participants)),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	for _, p := range a.Participants {
		dto.Participants = append(dto.Participants, ActivityParticipantDTO{UserId: p.UserId, TotalMoneyPerUser: p.TotalMoneyPerUser})
	}
	return dto
}

func dtoToActivityInput(dto ActivityRequestDTO) ActivityInput {
	input := ActivityInput{
		Name:         dto.Name,
		TotalMoney:   dto.TotalMoney,
		PayerId:      dto.PayerId,
		Participants: dto.Participants,
	}
	for _, s := range dto.Shares {
		input.Shares = append(input.Shares, split.Share{UserId: s.UserId, Amount: s.TotalMoneyPerUser})
	}
	return input
}

func paymentToDTO(p Payment) PaymentDTO {
	return PaymentDTO{
		Id:          p.Id,
		TripId:      p.TripId,
		UserId:      p.UserId,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Note:        p.Note,
	}
}
