package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/user"
)

func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestUserHandler_Register_SetsPendingCookie(t *testing.T) {
	var gotName, gotUsername string
	svc := &mockUserService{
		registerFn: func(ctx context.Context, name, username string) (*model.User, error) {
			gotName, gotUsername = name, username
			return &model.User{ID: "pending-user-1", Name: name, Username: "diego"}, nil
		},
	}
	h := NewUserHandler(svc, UserHandlerConfig{CookieSecure: true})

	w := httptest.NewRecorder()
	h.Register(w, authedRequest(http.MethodPost, "/users", `{"name":"Diego Fernandes","username":"Diego"}`, ""))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotName != "Diego Fernandes" || gotUsername != "Diego" {
		t.Errorf("Register(%q, %q)", gotName, gotUsername)
	}

	setCookie := w.Header().Get("Set-Cookie")
	if !strings.HasPrefix(setCookie, auth.PendingUserCookieName+"=pending-user-1;") {
		t.Errorf("Set-Cookie = %q", setCookie)
	}
	if !strings.Contains(setCookie, "Secure") {
		t.Error("pending cookie must follow CookieSecure")
	}

	var body userResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "pending-user-1" || body.Username != "diego" {
		t.Errorf("body = %+v", body)
	}
}

func TestUserHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ユーザー名重複", `{"name":"Diego","username":"diego"}`, model.NewUsernameTakenError(), http.StatusBadRequest, model.ErrCodeUsernameTaken},
		{"ユーザー名不正", `{"name":"Diego","username":"d1"}`, model.NewInvalidUsernameError(), http.StatusBadRequest, model.ErrCodeInvalidUsername},
		{"不正なJSON", `{"name":`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"空のボディ", ``, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"内部エラー", `{"name":"Diego","username":"diego"}`, errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUserService{
				registerFn: func(ctx context.Context, name, username string) (*model.User, error) {
					return nil, tt.err
				},
			}
			h := NewUserHandler(svc, UserHandlerConfig{})

			w := httptest.NewRecorder()
			h.Register(w, authedRequest(http.MethodPost, "/users", tt.body, ""))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeError(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if w.Header().Get("Set-Cookie") != "" {
				t.Error("pending cookie must not be set on failure")
			}
		})
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	var gotUserID, gotBio string
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID, bio string) (string, error) {
			gotUserID, gotBio = userID, bio
			return bio, nil
		},
	}
	h := NewUserHandler(svc, UserHandlerConfig{})

	w := httptest.NewRecorder()
	h.UpdateProfile(w, authedRequest(http.MethodPut, "/users/profile", `{"bio":"CTO na Rocketseat"}`, "user-1"))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if gotUserID != "user-1" || gotBio != "CTO na Rocketseat" {
		t.Errorf("UpdateProfile(%q, %q)", gotUserID, gotBio)
	}
}

func TestUserHandler_RequiresUser(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, UserHandlerConfig{})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
	}{
		{"UpdateProfile", h.UpdateProfile, http.MethodPut},
		{"SetTimeIntervals", h.SetTimeIntervals, http.MethodPost},
		{"TimeIntervals", h.TimeIntervals, http.MethodGet},
		{"Withdraw", h.Withdraw, http.MethodDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, authedRequest(tt.method, "/", `{}`, ""))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestUserHandler_SetTimeIntervals(t *testing.T) {
	var got []user.IntervalInput
	svc := &mockUserService{
		setTimeIntervalsFn: func(ctx context.Context, userID string, inputs []user.IntervalInput) ([]model.TimeInterval, error) {
			got = inputs
			return []model.TimeInterval{
				{ID: "ti-1", UserID: userID, WeekDay: 1, TimeStartInMinutes: 480, TimeEndInMinutes: 1080},
			}, nil
		},
	}
	h := NewUserHandler(svc, UserHandlerConfig{})

	body := `{"intervals":[{"weekDay":1,"startTimeInMinutes":480,"endTimeInMinutes":1080}]}`
	w := httptest.NewRecorder()
	h.SetTimeIntervals(w, authedRequest(http.MethodPost, "/users/time-intervals", body, "user-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	want := []user.IntervalInput{{WeekDay: 1, StartMinutes: 480, EndMinutes: 1080}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("inputs = %+v, want %+v", got, want)
	}

	var resp []timeIntervalResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].TimeEndInMinutes != 1080 {
		t.Errorf("response = %+v", resp)
	}
}

func TestUserHandler_SetTimeIntervals_Invalid(t *testing.T) {
	svc := &mockUserService{
		setTimeIntervalsFn: func(ctx context.Context, userID string, inputs []user.IntervalInput) ([]model.TimeInterval, error) {
			return nil, model.NewInvalidTimeIntervalError("selecione pelo menos um dia da semana")
		},
	}
	h := NewUserHandler(svc, UserHandlerConfig{})

	w := httptest.NewRecorder()
	h.SetTimeIntervals(w, authedRequest(http.MethodPost, "/users/time-intervals", `{"intervals":[]}`, "user-1"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeInvalidTimeInterval {
		t.Errorf("code = %q", body.Code)
	}
}

func TestUserHandler_TimeIntervals_EmptyIsArray(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, UserHandlerConfig{})

	w := httptest.NewRecorder()
	h.TimeIntervals(w, authedRequest(http.MethodGet, "/users/time-intervals", "", "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestUserHandler_Withdraw(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantClear  bool
	}{
		{"成功", nil, http.StatusNoContent, true},
		{"ユーザーが存在しない", model.NewUserNotFoundError(), http.StatusNotFound, false},
		{"内部エラー", errors.New("db down"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			svc := &mockUserService{
				withdrawFn: func(ctx context.Context, userID string) error {
					gotUserID = userID
					return tt.err
				},
			}
			h := NewUserHandler(svc, UserHandlerConfig{})

			w := httptest.NewRecorder()
			h.Withdraw(w, authedRequest(http.MethodDelete, "/api/users/me", "", "user-1"))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotUserID != "user-1" {
				t.Errorf("userID = %q", gotUserID)
			}
			cleared := findCookie(w.Result(), auth.SessionCookieName) != nil
			if cleared != tt.wantClear {
				t.Errorf("session cookie cleared = %v, want %v", cleared, tt.wantClear)
			}
		})
	}
}
