/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract consumed by
  the (out-of-scope) presentation layer.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers with a success flag

VALIDATION:
  Validation is done in the engine, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/engine.go: BookingInput / QueryResult originals
*/
package api

import (
	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// BOOKING
// =============================================================================

// BookRequest is the citizen booking input.
type BookRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Age         int    `json:"age"`
	RequestType string `json:"request_type"`
	UserType    string `json:"user_type"`
	City        string `json:"city"`
	Pincode     string `json:"pincode"`
}

// RequestDTO is the wire form of an appointment record.
type RequestDTO struct {
	RequestID        string `json:"request_id"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	AgeGroup         string `json:"age_group,omitempty"`
	RequestType      string `json:"request_type,omitempty"`
	UserType         string `json:"user_type,omitempty"`
	City             string `json:"city,omitempty"`
	Pincode          string `json:"pincode,omitempty"`
	Status           string `json:"status"`
	AssignedCenterID string `json:"assigned_center_id"`
	AssignedDate     string `json:"assigned_date"`
	AssignedTimeSlot string `json:"assigned_time_slot"`
	Timestamp        string `json:"timestamp,omitempty"`
}

// BookResponse is the booking outcome.
type BookResponse struct {
	Success    bool        `json:"success"`
	Data       *RequestDTO `json:"data,omitempty"`
	CenterName string      `json:"center_name,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// TrackResponse is the status lookup payload.
type TrackResponse struct {
	Success bool       `json:"success"`
	Data    RequestDTO `json:"data"`
}

// =============================================================================
// ADMIN
// =============================================================================

// AdminDataRequest filters the admin query. "All" (or empty) matches
// everything.
type AdminDataRequest struct {
	Region   string `json:"region"`
	AgeGroup string `json:"age_group"`
	Status   string `json:"status"`
}

// AdminDataResponse carries aggregates plus the newest matching records.
type AdminDataResponse struct {
	TotalReq          int          `json:"total_req"`
	TodayReq          int          `json:"today_req"`
	OverloadRedirects int          `json:"overload_redirects"`
	Logs              []RequestDTO `json:"logs"`
}

// RedistributeRequest names the saturated center.
type RedistributeRequest struct {
	CenterID string `json:"center_id"`
}

// RedistributeResponse summarizes the controller run.
type RedistributeResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// LoginRequest is the mock admin credential check.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the mock token and the admin's region scope.
type LoginResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token,omitempty"`
	Region       string `json:"region,omitempty"`
	PincodeScope string `json:"pincode_scope,omitempty"`
	Message      string `json:"message,omitempty"`
}

// =============================================================================
// CENTERS
// =============================================================================

// CenterDTO is a center listing entry.
type CenterDTO struct {
	CenterID string `json:"center_id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Pincode  string `json:"pincode"`
}

// SlotLoadDTO is one slot's occupancy on the load report.
type SlotLoadDTO struct {
	Slot        string `json:"slot"`
	Booked      int    `json:"booked"`
	Limit       int    `json:"limit"`
	Utilization string `json:"utilization"`
}

// =============================================================================
// COMMON
// =============================================================================

// StatusResponse is the generic success/message payload.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the generic failure payload.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// toRequestDTO converts a record, including the full admin-visible
// fields when admin is true.
func toRequestDTO(r engine.Request, admin bool) RequestDTO {
	dto := RequestDTO{
		RequestID:        string(r.ID),
		Name:             r.Name,
		Status:           string(r.Status),
		AssignedCenterID: string(r.AssignedCenter),
		AssignedTimeSlot: string(r.AssignedSlot),
	}
	if r.Assigned() {
		dto.AssignedDate = r.AssignedDate.String()
	}
	if admin {
		dto.Phone = r.Phone
		dto.AgeGroup = string(r.AgeGroup)
		dto.RequestType = r.RequestType
		dto.UserType = string(r.UserType)
		dto.City = r.City
		dto.Pincode = r.Pincode
		dto.Timestamp = r.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return dto
}
