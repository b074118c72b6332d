/*
handlers.go - HTTP API handlers for the allocation engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates every decision to the engine facade.

ENDPOINTS:
  Citizen:
    POST /api/book                    Book an appointment
    GET  /api/track?request_id=       Track a request
    POST /api/requests/{id}/cancel    Cancel a request
    GET  /api/centers                 List centers

  Admin:
    POST /api/login                   Mock admin login
    POST /api/admin/data              Filtered records + aggregates
    POST /api/admin/redistribute      Move demand off a center
    POST /api/admin/reset             Full-state wipe
    GET  /api/centers/{id}/load       Per-slot occupancy report
    POST /api/seed                    Load demo data

ERROR HANDLING:
  Engine errors map onto HTTP status:
  - 400: Invalid input
  - 404: Unknown request or center
  - 503: Maintenance (reset) in flight
  - 500: Internal errors
  Overload is NOT an HTTP failure: it is an expected outcome returned
  as success:false with the queued request attached.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/allocation-engine/centers"
	"github.com/warp/allocation-engine/engine"
)

// adminPassword is the mock credential. Real token issuance is an
// external collaborator; this only gates the demo console.
const adminPassword = "admin123"

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *engine.Engine
	Directory *centers.Directory
}

// NewHandler creates a handler over the engine facade.
func NewHandler(eng *engine.Engine, dir *centers.Directory) *Handler {
	return &Handler{Engine: eng, Directory: dir}
}

// =============================================================================
// CITIZEN ENDPOINTS
// =============================================================================

// Book creates an appointment.
// POST /api/book
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	result, err := h.Engine.Book(r.Context(), engine.BookingInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Age:         req.Age,
		RequestType: req.RequestType,
		UserType:    engine.UserType(req.UserType),
		City:        req.City,
		Pincode:     req.Pincode,
	})

	if errors.Is(err, engine.ErrOverload) {
		// Expected outcome: the request is queued as Pending.
		dto := toRequestDTO(result.Request, false)
		writeJSON(w, http.StatusOK, BookResponse{
			Success: false,
			Data:    &dto,
			Message: result.Message,
		})
		return
	}
	if err != nil {
		writeEngineError(w, "Booking failed", err)
		return
	}

	dto := toRequestDTO(result.Request, false)
	writeJSON(w, http.StatusOK, BookResponse{
		Success:    true,
		Data:       &dto,
		CenterName: result.CenterName,
		Message:    result.Message,
	})
}

// Track looks up a request by identifier.
// GET /api/track?request_id=REQ-...
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("request_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Request ID required", nil)
		return
	}

	record, err := h.Engine.Track(r.Context(), engine.RequestID(id))
	if err != nil {
		writeEngineError(w, "Request ID not found", err)
		return
	}
	writeJSON(w, http.StatusOK, TrackResponse{Success: true, Data: toRequestDTO(*record, false)})
}

// Cancel releases a request's slot and marks it Cancelled.
// POST /api/requests/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.Engine.Cancel(r.Context(), engine.RequestID(id))
	if err != nil {
		writeEngineError(w, "Cancellation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, TrackResponse{Success: true, Data: toRequestDTO(*record, false)})
}

// ListCenters returns the center directory ordered by ID.
// GET /api/centers
func (h *Handler) ListCenters(w http.ResponseWriter, r *http.Request) {
	list := h.Directory.List()
	dtos := make([]CenterDTO, len(list))
	for i, c := range list {
		dtos[i] = CenterDTO{
			CenterID: string(c.ID),
			Name:     c.Name,
			City:     c.City,
			Pincode:  c.Pincode,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Login is the mock admin credential check. Username format:
// admin_<city>_<pincode>, e.g. admin_delhi_110001.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if req.Password != adminPassword {
		writeJSON(w, http.StatusUnauthorized, LoginResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	parts := strings.Split(req.Username, "_")
	if len(parts) < 3 || parts[0] != "admin" {
		writeJSON(w, http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: "Invalid username format. Use admin_<city>_<pincode> (e.g. admin_delhi_110001)",
		})
		return
	}

	city := parts[1]
	if city != "" {
		city = strings.ToUpper(city[:1]) + city[1:]
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success:      true,
		Token:        "token_" + req.Username,
		Region:       city,
		PincodeScope: parts[2],
	})
}

// AdminData runs the filtered admin query.
// POST /api/admin/data
func (h *Handler) AdminData(w http.ResponseWriter, r *http.Request) {
	var req AdminDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	filter := engine.Filter{}
	if req.Region != "" && req.Region != "All" {
		filter.Region = req.Region
	}
	if req.AgeGroup != "" && req.AgeGroup != "All" {
		filter.AgeGroup = engine.AgeGroup(req.AgeGroup)
	}
	if req.Status != "" && req.Status != "All" {
		filter.Statuses = []engine.Status{engine.Status(req.Status)}
	}

	result, err := h.Engine.Query(r.Context(), filter)
	if err != nil {
		writeEngineError(w, "Query failed", err)
		return
	}

	// Admin display caps at the 50 newest records.
	logs := result.Requests
	if len(logs) > 50 {
		logs = logs[:50]
	}
	dtos := make([]RequestDTO, len(logs))
	for i, rec := range logs {
		dtos[i] = toRequestDTO(rec, true)
	}

	writeJSON(w, http.StatusOK, AdminDataResponse{
		TotalReq:          result.Total,
		TodayReq:          result.Today,
		OverloadRedirects: result.OverloadRedirects,
		Logs:              dtos,
	})
}

// Redistribute moves demand off a saturated center.
// POST /api/admin/redistribute
func (h *Handler) Redistribute(w http.ResponseWriter, r *http.Request) {
	var req RedistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.CenterID == "" {
		writeError(w, http.StatusBadRequest, "Missing center_id", nil)
		return
	}

	report, err := h.Engine.Redistribute(r.Context(), engine.CenterID(req.CenterID))
	if err != nil {
		writeEngineError(w, "Redistribution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RedistributeResponse{
		Success: true,
		Count:   report.Moved,
		Message: fmt.Sprintf("%d appointments shifted to alternate centers (%d could not be placed).", report.Moved, report.Parked),
	})
}

// Reset wipes all requests and counters.
// POST /api/admin/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reset(r.Context()); err != nil {
		writeEngineError(w, "Reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "System data reset successfully."})
}

// CenterLoad reports per-slot occupancy for a center on a date.
// GET /api/centers/{id}/load?date=2006-01-02 (defaults to today)
func (h *Handler) CenterLoad(w http.ResponseWriter, r *http.Request) {
	id := engine.CenterID(chi.URLParam(r, "id"))

	date := engine.DateOf(nowUTC())
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := engine.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		date = parsed
	}

	loads, err := h.Engine.CenterLoad(r.Context(), id, date)
	if err != nil {
		writeEngineError(w, "Load report failed", err)
		return
	}

	dtos := make([]SlotLoadDTO, len(loads))
	for i, l := range loads {
		dtos[i] = SlotLoadDTO{
			Slot:        string(l.Slot),
			Booked:      l.Booked,
			Limit:       l.Limit,
			Utilization: l.Utilization.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func nowUTC() time.Time { return time.Now().UTC() }

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Temporarily unavailable, retry shortly", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
