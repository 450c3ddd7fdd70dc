package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"famlink/internal/service"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got %q", recorder.Body.String())
	}
	if body["error"] != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %q", body["error"])
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, "Internal server error", "", err)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
}

func TestRespondWithServiceErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "permission denied", err: service.ErrPermissionDenied, wantStatus: http.StatusForbidden},
		{name: "identity not resolved", err: service.ErrIdentityNotResolved, wantStatus: http.StatusForbidden},
		{name: "not family parent", err: service.ErrNotFamilyParent, wantStatus: http.StatusForbidden},
		{name: "family not found", err: service.ErrFamilyNotFound, wantStatus: http.StatusNotFound},
		{name: "connection exists", err: service.ErrConnectionExists, wantStatus: http.StatusConflict},
		{name: "cannot block parent", err: service.ErrCannotBlockParent, wantStatus: http.StatusConflict},
		{name: "invalid credentials", err: service.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "wrapped sentinel", err: fmt.Errorf("context: %w", service.ErrConnectionDecided), wantStatus: http.StatusConflict},
		{name: "unknown error", err: errors.New("database exploded"), wantStatus: http.StatusInternalServerError},
	}

	// Silence the unknown-error log line
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&bytes.Buffer{})
	defer logger.SetOutput(originalOutput)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondWithServiceError(recorder, tt.err)
			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
		})
	}
}

func TestRespondWithServiceErrorHidesInternals(t *testing.T) {
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&bytes.Buffer{})
	defer logger.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	respondWithServiceError(recorder, errors.New("pq: relation blocks does not exist"))

	if strings.Contains(recorder.Body.String(), "relation") {
		t.Fatalf("internal error leaked to response: %q", recorder.Body.String())
	}
}
