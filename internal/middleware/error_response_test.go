package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/ignitecall/internal/model"
)

func TestWriteErrorResponse_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		apiErr *model.APIError
	}{
		{"ユーザー名の重複", http.StatusBadRequest, model.NewUsernameTakenError()},
		{"予約の重複", http.StatusConflict, model.NewTimeConflictError()},
		{"ユーザー不在", http.StatusNotFound, model.NewUserNotFoundError()},
		{"内部エラー", http.StatusInternalServerError, InternalServerError()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.status, tt.apiErr)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var raw map[string]string
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			want := map[string]string{
				"code":     tt.apiErr.Code,
				"message":  tt.apiErr.Message,
				"category": tt.apiErr.Category,
				"action":   tt.apiErr.Action,
			}
			for field, value := range want {
				if raw[field] != value {
					t.Errorf("%s = %q, want %q", field, raw[field], value)
				}
				if value == "" {
					t.Errorf("%s が空", field)
				}
			}
		})
	}
}

func TestWriteError_MapsAPIErrorToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ユーザー不在", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"時刻の重複", fmt.Errorf("wrapped: %w", model.NewTimeConflictError()), http.StatusConflict, model.ErrCodeTimeConflict},
		{"過去日時", model.NewDateInPastError(), http.StatusBadRequest, model.ErrCodeDateInPast},
		{"入力不正", model.NewInvalidDateError("x"), http.StatusBadRequest, model.ErrCodeInvalidDate},
		{"内部エラー", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(body.Message, "connection") {
				t.Error("internal error details must not leak")
			}
		})
	}
}
