package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/services"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Run-ID", "run-1").
		JSON(map[string]int{"revenues": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Run-ID") != "run-1" {
		t.Error("custom header not set")
	}
	if w.Body.String() != "{\"revenues\":2}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_Bytes(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Bytes("text/csv", []byte("a,b\n")).Write(w)

	if w.Header().Get("Content-Type") != "text/csv" || w.Body.String() != "a,b\n" {
		t.Errorf("response = %q %q", w.Header().Get("Content-Type"), w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestUnprocessableEntityError(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntityError("record failed validation", []string{"tariff_amount"}).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d", w.Code)
	}
	for _, part := range []string{`"status":422`, `"message":"record failed validation"`, `"details":["tariff_amount"]`} {
		if !strings.Contains(w.Body.String(), part) {
			t.Errorf("body missing %s: %s", part, w.Body.String())
		}
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{"not found", fmt.Errorf("get: %w", core.ErrRecordNotFound), http.StatusNotFound, "record not found"},
		{"bad scope", core.ErrInvalidScope, http.StatusBadRequest, "invalid scope"},
		{"bad period", core.ErrInvalidPeriod, http.StatusBadRequest, "invalid period"},
		{"unknown domain", core.ErrUnknownDomain, http.StatusBadRequest, "unknown staging domain"},
		{"transition", core.ErrInvalidTransition, http.StatusConflict, "invalid status transition"},
		{"blocked", services.ErrSubmissionBlocked, http.StatusUnprocessableEntity, "submission blocked"},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(tt.err).Write(w)

			if w.Code != tt.want {
				t.Errorf("Status code = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), tt.message) {
				t.Errorf("body = %s, want message containing %q", w.Body.String(), tt.message)
			}
			if strings.Contains(w.Body.String(), "database is locked") {
				t.Error("internal error text leaked")
			}
		})
	}
}
