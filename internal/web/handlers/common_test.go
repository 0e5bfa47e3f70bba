package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, map[string]string{"status": "ok"})

	assertContentType(t, recorder, "application/json")
}

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"Conflict", http.StatusConflict},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	// Body should be empty for nil data
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "date must be YYYY-MM-DD")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "date must be YYYY-MM-DD")
}

func TestRespondFailed_OmitsEmptyReason(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, statusResponse{Status: statusSuccess, Message: "ok"})

	var raw map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := raw["reason"]; ok {
		t.Errorf("expected no reason key on success, got %v", raw)
	}

	recorder = httptest.NewRecorder()
	respondFailed(recorder, http.StatusNotFound, "unknown_user", "Unknown user. Please register first.")

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertStatusResponse(t, recorder, statusFailed, "unknown_user", "Unknown user. Please register first.")
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("E100\r\nforged line"); got != "E100forged line" {
		t.Errorf("expected newlines stripped, got '%s'", got)
	}
}

func TestHealthCheck_ReturnsOK(t *testing.T) {
	store := mock.NewMockStore()
	store.AddIdentity("Alice", "E100", embedding.Vector{})

	recorder := httptest.NewRecorder()
	HealthCheck(store)(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%v'", result["status"])
	}
	if result["identities"] != float64(1) {
		t.Errorf("expected 1 identity, got %v", result["identities"])
	}
}

func TestHealthCheck_StoreDown(t *testing.T) {
	store := mock.NewMockStore()
	store.CountIdentitiesError = errors.New("connection refused")

	recorder := httptest.NewRecorder()
	HealthCheck(store)(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "unavailable" {
		t.Errorf("expected status 'unavailable', got '%s'", result["status"])
	}
}
