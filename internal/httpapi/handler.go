package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clinic/frontdesk-service/internal/models"
	"clinic/frontdesk-service/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.VisitStore
}

func NewHandler(store store.VisitStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/visits", h.handleVisits)
	mux.HandleFunc("/api/visits/appointment", h.handleAppointmentFlag)
	mux.HandleFunc("/api/visits/", h.handleVisitSubtree)
	mux.HandleFunc("/api/charges", h.handleOpenCharge)
	mux.HandleFunc("/api/charges/", h.handleChargeSubtree)
	return mux
}

type createVisitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Speciality  string `json:"speciality"`
}

type appointmentFlagRequest struct {
	ID                string `json:"id"`
	RecentAppointment *bool  `json:"recentAppointment"`
}

type openChargeRequest struct {
	VisitID       string  `json:"visitId"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod"`
}

type updateChargeRequest struct {
	Status        string `json:"status"`
	PaymentMethod string `json:"paymentMethod"`
}

type addTreatmentRequest struct {
	TestGiven   string `json:"testGiven"`
	TestResults string `json:"testResults"`
	Medication  string `json:"medication"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type createVisitResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Visit   models.Visit  `json:"visit"`
	Charge  models.Charge `json:"charge"`
}

type visitResponse struct {
	Success bool         `json:"success"`
	Visit   models.Visit `json:"visit"`
}

type listVisitsResponse struct {
	Success bool           `json:"success"`
	Visits  []models.Visit `json:"visits"`
}

type chargeResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Charge  models.Charge `json:"charge"`
}

type listChargesResponse struct {
	Success bool            `json:"success"`
	Charges []models.Charge `json:"charges"`
}

type treatmentResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Treatment models.TreatmentNote `json:"treatment"`
}

type listTreatmentsResponse struct {
	Success    bool                   `json:"success"`
	Treatments []models.TreatmentNote `json:"treatments"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleVisits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateVisit(w, r)
	case http.MethodGet:
		h.handleListVisits(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Gender = strings.TrimSpace(req.Gender)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Speciality = strings.TrimSpace(req.Speciality)

	if req.Name == "" || req.Description == "" || req.Gender == "" || req.PhoneNumber == "" || req.Speciality == "" {
		writeError(w, http.StatusBadRequest, "name, description, gender, age, phoneNumber, and speciality are required")
		return
	}
	if len(req.Name) < 2 {
		writeError(w, http.StatusBadRequest, "name must be at least 2 characters")
		return
	}
	if len(req.Description) < 5 {
		writeError(w, http.StatusBadRequest, "description must be at least 5 characters")
		return
	}
	if !models.ValidGender(req.Gender) {
		writeError(w, http.StatusBadRequest, "gender must be one of Male, Female, Transgender")
		return
	}
	if req.Age < 1 || req.Age > 150 {
		writeError(w, http.StatusBadRequest, "age must be a positive whole number no greater than 150")
		return
	}
	if len(req.PhoneNumber) < 10 || len(req.PhoneNumber) > 15 {
		writeError(w, http.StatusBadRequest, "phoneNumber must be 10-15 characters")
		return
	}

	visit, charge, err := h.store.CreateVisit(r.Context(), store.CreateVisitInput{
		Name:        req.Name,
		Description: req.Description,
		Gender:      req.Gender,
		Age:         req.Age,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Speciality:  req.Speciality,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, createVisitResponse{
		Success: true,
		Message: "Visit registered and consultation fee created.",
		Visit:   visit,
		Charge:  charge,
	})
}

func (h *Handler) handleListVisits(w http.ResponseWriter, r *http.Request) {
	var filter *bool
	if raw := strings.TrimSpace(r.URL.Query().Get("recentAppointment")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "recentAppointment must be true or false")
			return
		}
		filter = &value
	}

	visits, err := h.store.ListVisits(r.Context(), filter)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	if visits == nil {
		visits = []models.Visit{}
	}

	writeJSON(w, http.StatusOK, listVisitsResponse{Success: true, Visits: visits})
}

func (h *Handler) handleAppointmentFlag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req appointmentFlagRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.RecentAppointment == nil {
		writeError(w, http.StatusBadRequest, "id and recentAppointment are required")
		return
	}
	if !isValidUUID(req.ID) {
		writeError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}

	if err := h.store.SetAppointmentFlag(r.Context(), req.ID, *req.RecentAppointment); err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Appointment changed."})
}

func (h *Handler) handleVisitSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/visits/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1:
		visitID := parts[0]
		if !isValidUUID(visitID) {
			writeError(w, http.StatusBadRequest, "visit id must be a UUID")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGetVisit(w, r, visitID)
		case http.MethodDelete:
			h.handleDeleteVisit(w, r, visitID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "treatments":
		visitID := parts[0]
		if !isValidUUID(visitID) {
			writeError(w, http.StatusBadRequest, "visit id must be a UUID")
			return
		}
		switch r.Method {
		case http.MethodPost:
			h.handleAddTreatment(w, r, visitID)
		case http.MethodGet:
			h.handleListTreatments(w, r, visitID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetVisit(w http.ResponseWriter, r *http.Request, visitID string) {
	visit, err := h.store.GetVisit(r.Context(), visitID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, visitResponse{Success: true, Visit: visit})
}

func (h *Handler) handleDeleteVisit(w http.ResponseWriter, r *http.Request, visitID string) {
	if err := h.store.DeleteVisit(r.Context(), visitID); err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Visit removed."})
}

func (h *Handler) handleAddTreatment(w http.ResponseWriter, r *http.Request, visitID string) {
	var req addTreatmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req.TestGiven = strings.TrimSpace(req.TestGiven)
	req.TestResults = strings.TrimSpace(req.TestResults)
	req.Medication = strings.TrimSpace(req.Medication)
	if req.TestGiven == "" && req.TestResults == "" && req.Medication == "" {
		writeError(w, http.StatusBadRequest, "at least one of testGiven, testResults, medication is required")
		return
	}

	note, err := h.store.AddTreatment(r.Context(), store.AddTreatmentInput{
		VisitID:     visitID,
		TestGiven:   req.TestGiven,
		TestResults: req.TestResults,
		Medication:  req.Medication,
		Date:        time.Now().UTC(),
	})
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, treatmentResponse{
		Success:   true,
		Message:   "Treatment record added.",
		Treatment: note,
	})
}

func (h *Handler) handleListTreatments(w http.ResponseWriter, r *http.Request, visitID string) {
	notes, err := h.store.ListTreatments(r.Context(), visitID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	if notes == nil {
		notes = []models.TreatmentNote{}
	}
	writeJSON(w, http.StatusOK, listTreatmentsResponse{Success: true, Treatments: notes})
}

func (h *Handler) handleOpenCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req openChargeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req.VisitID = strings.TrimSpace(req.VisitID)
	req.Description = strings.TrimSpace(req.Description)
	req.Status = strings.TrimSpace(req.Status)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)

	if req.VisitID == "" {
		writeError(w, http.StatusBadRequest, "visitId is required")
		return
	}
	if !isValidUUID(req.VisitID) {
		writeError(w, http.StatusBadRequest, "visitId must be a UUID")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Status != "" && !store.ValidChargeStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be one of pending, paid, refunded")
		return
	}

	charge, err := h.store.OpenCharge(r.Context(), store.OpenChargeInput{
		VisitID:       req.VisitID,
		Amount:        req.Amount,
		Description:   req.Description,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, chargeResponse{
		Success: true,
		Message: "Charge added.",
		Charge:  charge,
	})
}

func (h *Handler) handleChargeSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/charges/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 2 && parts[0] == "visit":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleListCharges(w, r, parts[1])
	case len(parts) == 1:
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUpdateCharge(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleListCharges(w http.ResponseWriter, r *http.Request, visitID string) {
	if !isValidUUID(visitID) {
		writeError(w, http.StatusBadRequest, "visit id must be a UUID")
		return
	}

	charges, err := h.store.ListCharges(r.Context(), visitID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	if charges == nil {
		charges = []models.Charge{}
	}
	writeJSON(w, http.StatusOK, listChargesResponse{Success: true, Charges: charges})
}

func (h *Handler) handleUpdateCharge(w http.ResponseWriter, r *http.Request, chargeID string) {
	if !isValidUUID(chargeID) {
		writeError(w, http.StatusBadRequest, "charge id must be a UUID")
		return
	}

	var req updateChargeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req.Status = strings.TrimSpace(req.Status)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.Status == "" && req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "no fields provided for update")
		return
	}
	if req.Status != "" && !store.ValidChargeStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be one of pending, paid, refunded")
		return
	}

	input := store.UpdateChargeInput{ChargeID: chargeID}
	if req.Status != "" {
		input.Status = &req.Status
	}
	if req.PaymentMethod != "" {
		input.PaymentMethod = &req.PaymentMethod
	}

	charge, err := h.store.UpdateCharge(r.Context(), input)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, chargeResponse{
		Success: true,
		Message: "Charge updated.",
		Charge:  charge,
	})
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrVisitNotFound):
		return http.StatusNotFound, "visit not found"
	case errors.Is(err, store.ErrChargeNotFound):
		return http.StatusNotFound, "charge not found"
	case errors.Is(err, store.ErrTokenConflict):
		return http.StatusConflict, "a visit with this token already exists for today, please try again"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
