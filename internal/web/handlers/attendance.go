package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Attendance is the workflow behind the kiosk endpoints.
type Attendance interface {
	Enroll(ctx context.Context, req attendance.EnrollRequest) (*database.Identity, error)
	Mark(ctx context.Context, image []byte) (*attendance.MarkResult, error)
	Embedder
}

// AttendanceHandler serves POST /register and POST /attendance.
type AttendanceHandler struct {
	service Attendance
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(service Attendance) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// errMissingFile is returned by readFormFile when the part is absent.
var errMissingFile = errors.New("missing file part")

// parseForm parses a multipart body capped at constants.MaxUploadSize.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return fmt.Errorf("parsing multipart form: %w", err)
	}
	return nil
}

// uploadTooLargeMessage is returned with 413 when a body exceeds constants.MaxUploadSize.
var uploadTooLargeMessage = fmt.Sprintf("Upload exceeds the %d MB limit", constants.MaxUploadSize>>20)

// isTooLarge reports whether err came from the upload size cap.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// readFormFile reads the named file part of a parsed multipart form.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errMissingFile
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	return data, nil
}

// Register enrolls a new identity from a multipart form with name, employee_id and image.
func (h *AttendanceHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := parseForm(w, r); err != nil {
		log.WithError(err).Debug("invalid register form")
		if isTooLarge(err) {
			respondFailed(w, http.StatusRequestEntityTooLarge, "validation", uploadTooLargeMessage)
			return
		}
		respondFailed(w, http.StatusBadRequest, "validation", "Missing form data")
		return
	}
	_, hasName := r.MultipartForm.Value["name"]
	_, hasCode := r.MultipartForm.Value["employee_id"]
	image, err := readFormFile(r, "image")
	if !hasName || !hasCode || errors.Is(err, errMissingFile) {
		respondFailed(w, http.StatusBadRequest, "validation", "Missing form data")
		return
	}
	if err != nil {
		log.WithError(err).Warn("failed to read uploaded image")
		respondFailed(w, http.StatusBadRequest, "validation", "Missing form data")
		return
	}

	identity, err := h.service.Enroll(r.Context(), attendance.EnrollRequest{
		Name:         r.FormValue("name"),
		EmployeeCode: r.FormValue("employee_id"),
		Image:        image,
	})
	if err != nil {
		status, reason, message := classify(err)
		switch reason {
		case "validation":
			message = validationMessage(err, "All fields are required")
		case "no_face":
			message = "No face detected in image"
		case "database":
			message = "Database error during registration."
		}
		logFailure(r.Context(), err, status, "registration failed")
		respondFailed(w, status, reason, message)
		return
	}

	log.WithField("identity_id", identity.ID).Info("registered " + sanitizeForLog(identity.EmployeeCode))
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  statusSuccess,
		Message: "User registered successfully",
	})
}

// Mark recognizes the face in the uploaded image and records attendance for today.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		logging.FromContext(r.Context()).WithError(err).Debug("invalid attendance form")
		if isTooLarge(err) {
			respondFailed(w, http.StatusRequestEntityTooLarge, "validation", uploadTooLargeMessage)
			return
		}
		respondFailed(w, http.StatusBadRequest, "validation", "No image part in the request")
		return
	}
	image, err := readFormFile(r, "image")
	if err != nil {
		respondFailed(w, http.StatusBadRequest, "validation", "No image part in the request")
		return
	}
	if len(image) == 0 {
		respondFailed(w, http.StatusBadRequest, "validation", "No image file provided")
		return
	}

	result, err := h.service.Mark(r.Context(), image)
	if err != nil {
		status, reason, message := classify(err)
		switch reason {
		case "validation":
			message = "No image file provided"
		case "database":
			message = "Database error during attendance marking."
		}
		logFailure(r.Context(), err, status, "attendance failed")
		respondFailed(w, status, reason, message)
		return
	}

	if result.Outcome == attendance.OutcomeAlreadyMarked {
		respondJSON(w, http.StatusOK, statusResponse{
			Status:  statusAlreadyMarked,
			Message: fmt.Sprintf("Attendance already marked for %s today", result.Identity.Name),
		})
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  statusSuccess,
		Message: "Attendance marked for " + result.Identity.Name,
	})
}

// classify maps a service error to an HTTP status, a reason and a default message.
// Unrecognized errors are treated as database faults.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, attendance.ErrValidation):
		return http.StatusBadRequest, "validation", "All fields are required"
	case errors.Is(err, attendance.ErrNoFaceDetected):
		return http.StatusBadRequest, "no_face", "No face detected"
	case errors.Is(err, attendance.ErrExtraction) && extractor.IsUnreadable(err):
		return http.StatusInternalServerError, "extraction", "Image could not be read."
	case errors.Is(err, attendance.ErrExtraction):
		return http.StatusInternalServerError, "extraction", "Image processing failed."
	case errors.Is(err, attendance.ErrDuplicateIdentity):
		return http.StatusConflict, "duplicate_identity", "Employee ID already exists"
	case errors.Is(err, attendance.ErrUnknownUser):
		return http.StatusNotFound, "unknown_user", "Unknown user. Please register first."
	default:
		return http.StatusInternalServerError, "database", "Database error."
	}
}

// validationMessage returns the field detail of a validation error, or fallback.
func validationMessage(err error, fallback string) string {
	_, detail, ok := strings.Cut(err.Error(), attendance.ErrValidation.Error()+": ")
	if !ok || detail == "" {
		return fallback
	}
	return detail
}

// logFailure logs server faults with their cause and client errors at debug level.
func logFailure(ctx context.Context, err error, status int, msg string) {
	entry := logging.FromContext(ctx).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
		return
	}
	entry.Debug(msg)
}
