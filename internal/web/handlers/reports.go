package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/report"
)

// ReportsHandler serves read-only listings of identities and attendance.
type ReportsHandler struct {
	store    report.Store
	reporter *report.Reporter
	now      func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(store report.Store, reporter *report.Reporter) *ReportsHandler {
	return &ReportsHandler{store: store, reporter: reporter, now: time.Now}
}

// IdentityResponse represents an identity in API responses. Embeddings are never exposed.
type IdentityResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	EmployeeCode string    `json:"employee_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceResponse represents an attendance record in API responses.
type AttendanceResponse struct {
	ID           int64  `json:"id"`
	IdentityID   int64  `json:"identity_id"`
	Name         string `json:"name"`
	EmployeeCode string `json:"employee_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       string `json:"status"`
}

func toIdentityResponse(i database.Identity) IdentityResponse {
	return IdentityResponse{
		ID:           i.ID,
		Name:         i.Name,
		EmployeeCode: i.EmployeeCode,
		CreatedAt:    i.CreatedAt,
	}
}

// ListIdentities handles GET /api/v1/identities?q=&sort=employee_id.
func (h *ReportsHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to list identities")
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	identities = identity.Filter(identities, r.URL.Query().Get("q"))
	switch r.URL.Query().Get("sort") {
	case "", "id":
	case "employee_id":
		identity.SortByEmployeeCode(identities)
	default:
		respondError(w, http.StatusBadRequest, "sort must be id or employee_id")
		return
	}

	out := make([]IdentityResponse, 0, len(identities))
	for _, i := range identities {
		out = append(out, toIdentityResponse(i))
	}
	respondJSON(w, http.StatusOK, out)
}

// parseDate returns the date query parameter, defaulting to today.
func (h *ReportsHandler) parseDate(r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return database.DateOf(h.now()), true
	}
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// ListAttendance handles GET /api/v1/attendance?date=&identity_id=&limit=.
func (h *ReportsHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	filter := database.AttendanceFilter{Date: date, Limit: constants.DefaultAttendanceLimit}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, constants.MaxAttendanceLimit)
	}
	if s := r.URL.Query().Get("identity_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "identity_id must be a positive integer")
			return
		}
		filter.IdentityID = id
	}

	records, err := h.store.ListAttendance(r.Context(), filter)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to list attendance")
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	out := make([]AttendanceResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, AttendanceResponse{
			ID:           rec.ID,
			IdentityID:   rec.IdentityID,
			Name:         rec.Name,
			EmployeeCode: rec.EmployeeCode,
			Date:         rec.Date,
			Time:         rec.Time,
			Status:       string(rec.Status),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Summary handles GET /api/v1/attendance/summary?date=.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	summary, err := h.reporter.Daily(r.Context(), date)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to build summary")
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
