package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// fakeAttendance records calls and returns canned results.
type fakeAttendance struct {
	enrollErr    error
	markResult   *attendance.MarkResult
	markErr      error
	enrolled     []attendance.EnrollRequest
	markedImages [][]byte
}

func (f *fakeAttendance) Enroll(_ context.Context, req attendance.EnrollRequest) (*database.Identity, error) {
	f.enrolled = append(f.enrolled, req)
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	return &database.Identity{ID: 1, Name: req.Name, EmployeeCode: req.EmployeeCode}, nil
}

func (f *fakeAttendance) Mark(_ context.Context, image []byte) (*attendance.MarkResult, error) {
	f.markedImages = append(f.markedImages, image)
	return f.markResult, f.markErr
}

func (f *fakeAttendance) Embed(context.Context, []byte) (embedding.Vector, error) {
	return embedding.Vector{}, f.markErr
}

var testImage = []byte("\xff\xd8\xff\xe0 not really a jpeg")

func TestRegister_Success(t *testing.T) {
	svc := &fakeAttendance{}
	h := NewAttendanceHandler(svc)

	req := multipartRequest(t, "/register",
		map[string]string{"name": "Alice", "employee_id": "E100"},
		map[string][]byte{"image": testImage})
	recorder := httptest.NewRecorder()

	h.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")
	assertStatusResponse(t, recorder, statusSuccess, "", "User registered successfully")

	if len(svc.enrolled) != 1 {
		t.Fatalf("expected 1 enroll call, got %d", len(svc.enrolled))
	}
	got := svc.enrolled[0]
	if got.Name != "Alice" || got.EmployeeCode != "E100" || string(got.Image) != string(testImage) {
		t.Errorf("unexpected enroll request: %+v", got)
	}
}

func TestRegister_MissingFormData(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		files  map[string][]byte
	}{
		{"no name", map[string]string{"employee_id": "E100"}, map[string][]byte{"image": testImage}},
		{"no employee_id", map[string]string{"name": "Alice"}, map[string][]byte{"image": testImage}},
		{"no image", map[string]string{"name": "Alice", "employee_id": "E100"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeAttendance{}
			h := NewAttendanceHandler(svc)
			recorder := httptest.NewRecorder()

			h.Register(recorder, multipartRequest(t, "/register", tc.values, tc.files))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertStatusResponse(t, recorder, statusFailed, "validation", "Missing form data")
			if len(svc.enrolled) != 0 {
				t.Error("service should not be called")
			}
		})
	}
}

func TestRegister_NotMultipart(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{})
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	h.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertStatusResponse(t, recorder, statusFailed, "validation", "Missing form data")
}

func TestRegister_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
	}{
		{"validation", fmt.Errorf("%w: name is required", attendance.ErrValidation), http.StatusBadRequest, "validation", "name is required"},
		{"extraction", fmt.Errorf("%w: sidecar down", attendance.ErrExtraction), http.StatusInternalServerError, "extraction", "Image processing failed."},
		{"no face", attendance.ErrNoFaceDetected, http.StatusBadRequest, "no_face", "No face detected in image"},
		{"duplicate", fmt.Errorf("%w: E100", attendance.ErrDuplicateIdentity), http.StatusConflict, "duplicate_identity", "Employee ID already exists"},
		{"database", fmt.Errorf("%w: disk full", attendance.ErrDatabase), http.StatusInternalServerError, "database", "Database error during registration."},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "database", "Database error during registration."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAttendanceHandler(&fakeAttendance{enrollErr: tc.err})
			recorder := httptest.NewRecorder()

			h.Register(recorder, multipartRequest(t, "/register",
				map[string]string{"name": "Alice", "employee_id": "E100"},
				map[string][]byte{"image": testImage}))

			assertStatusCode(t, recorder, tc.status)
			assertStatusResponse(t, recorder, statusFailed, tc.reason, tc.message)
		})
	}
}

func TestRegister_DatabaseErrorHidesCause(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{
		enrollErr: fmt.Errorf("%w: pq: password authentication failed", attendance.ErrDatabase),
	})
	recorder := httptest.NewRecorder()

	h.Register(recorder, multipartRequest(t, "/register",
		map[string]string{"name": "Alice", "employee_id": "E100"},
		map[string][]byte{"image": testImage}))

	if strings.Contains(recorder.Body.String(), "password") {
		t.Errorf("response leaks database detail: %s", recorder.Body.String())
	}
}

func TestMark_Success(t *testing.T) {
	svc := &fakeAttendance{markResult: &attendance.MarkResult{
		Outcome:  attendance.OutcomeSuccess,
		Identity: database.Identity{ID: 1, Name: "Alice", EmployeeCode: "E100"},
		Record:   &database.AttendanceRecord{ID: 1, IdentityID: 1, Date: "2026-03-02", Time: "08:15:00"},
	}}
	h := NewAttendanceHandler(svc)
	recorder := httptest.NewRecorder()

	h.Mark(recorder, multipartRequest(t, "/attendance", nil, map[string][]byte{"image": testImage}))

	assertStatusCode(t, recorder, http.StatusOK)
	assertStatusResponse(t, recorder, statusSuccess, "", "Attendance marked for Alice")
	if len(svc.markedImages) != 1 || string(svc.markedImages[0]) != string(testImage) {
		t.Errorf("expected the uploaded image to be passed through, got %d calls", len(svc.markedImages))
	}
}

func TestMark_AlreadyMarked(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{markResult: &attendance.MarkResult{
		Outcome:  attendance.OutcomeAlreadyMarked,
		Identity: database.Identity{ID: 1, Name: "Alice", EmployeeCode: "E100"},
	}})
	recorder := httptest.NewRecorder()

	h.Mark(recorder, multipartRequest(t, "/attendance", nil, map[string][]byte{"image": testImage}))

	assertStatusCode(t, recorder, http.StatusOK)
	assertStatusResponse(t, recorder, statusAlreadyMarked, "", "Attendance already marked for Alice today")
}

func TestMark_MissingImage(t *testing.T) {
	svc := &fakeAttendance{}
	h := NewAttendanceHandler(svc)

	recorder := httptest.NewRecorder()
	h.Mark(recorder, multipartRequest(t, "/attendance", map[string]string{"name": "Alice"}, nil))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertStatusResponse(t, recorder, statusFailed, "validation", "No image part in the request")

	recorder = httptest.NewRecorder()
	h.Mark(recorder, multipartRequest(t, "/attendance", nil, map[string][]byte{"image": {}}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertStatusResponse(t, recorder, statusFailed, "validation", "No image file provided")

	if len(svc.markedImages) != 0 {
		t.Error("service should not be called")
	}
}

func TestMark_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
	}{
		{"extraction", fmt.Errorf("%w: undecodable", attendance.ErrExtraction), http.StatusInternalServerError, "extraction", "Image processing failed."},
		{"unreadable image", fmt.Errorf("%w: %w", attendance.ErrExtraction,
			&extractor.Error{Kind: extractor.KindUnreadable, Op: "response", Err: errors.New("422")}),
			http.StatusInternalServerError, "extraction", "Image could not be read."},
		{"no face", attendance.ErrNoFaceDetected, http.StatusBadRequest, "no_face", "No face detected"},
		{"unknown", attendance.ErrUnknownUser, http.StatusNotFound, "unknown_user", "Unknown user. Please register first."},
		{"database", fmt.Errorf("%w: deadlock", attendance.ErrDatabase), http.StatusInternalServerError, "database", "Database error during attendance marking."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAttendanceHandler(&fakeAttendance{markErr: tc.err})
			recorder := httptest.NewRecorder()

			h.Mark(recorder, multipartRequest(t, "/attendance", nil, map[string][]byte{"image": testImage}))

			assertStatusCode(t, recorder, tc.status)
			assertStatusResponse(t, recorder, statusFailed, tc.reason, tc.message)
		})
	}
}

func TestValidationMessage(t *testing.T) {
	err := fmt.Errorf("%w: name is required, employee_id is required", attendance.ErrValidation)
	if got := validationMessage(err, "fallback"); got != "name is required, employee_id is required" {
		t.Errorf("unexpected message '%s'", got)
	}
	if got := validationMessage(attendance.ErrValidation, "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got '%s'", got)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	oversized := make([]byte, constants.MaxUploadSize+1)

	t.Run("register", func(t *testing.T) {
		svc := &fakeAttendance{}
		recorder := httptest.NewRecorder()

		NewAttendanceHandler(svc).Register(recorder, multipartRequest(t, "/register",
			map[string]string{"name": "Alice", "employee_id": "E100"},
			map[string][]byte{"image": oversized}))

		assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
		assertStatusResponse(t, recorder, statusFailed, "validation", "Upload exceeds the 16 MB limit")
		if len(svc.enrolled) != 0 {
			t.Error("service should not be called")
		}
	})

	t.Run("attendance", func(t *testing.T) {
		svc := &fakeAttendance{}
		recorder := httptest.NewRecorder()

		NewAttendanceHandler(svc).Mark(recorder, multipartRequest(t, "/attendance", nil,
			map[string][]byte{"image": oversized}))

		assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
		assertStatusResponse(t, recorder, statusFailed, "validation", "Upload exceeds the 16 MB limit")
		if len(svc.markedImages) != 0 {
			t.Error("service should not be called")
		}
	})
}
