package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register はユーザー名を確保し、仮登録ユーザーを作成する。
	Register(ctx context.Context, name, username string) (*model.User, error)
	// FindByUsername はユーザー名でユーザーを取得する。存在しない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateProfile は自己紹介を更新し、サニタイズ後の値を返す。
	UpdateProfile(ctx context.Context, userID, bio string) (string, error)
	// SetTimeIntervals は受付時間帯を置き換える。
	SetTimeIntervals(ctx context.Context, userID string, inputs []user.IntervalInput) ([]model.TimeInterval, error)
	// TimeIntervals は受付時間帯を返す。
	TimeIntervals(ctx context.Context, userID string) ([]model.TimeInterval, error)
	// Withdraw はユーザーの退会処理を実行する。
	// セッション、予約、受付時間帯、ユーザーを削除する。アカウントはCASCADEで消える。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandlerConfig はユーザーハンドラーの設定。
type UserHandlerConfig struct {
	CookieSecure bool
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  UserHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config UserHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type updateProfileRequest struct {
	Bio string `json:"bio"`
}

type timeIntervalsRequest struct {
	Intervals []user.IntervalInput `json:"intervals"`
}

// Register はユーザー名を確保し、仮登録Cookieを設定する。
// POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, err := h.service.Register(r.Context(), req.Name, req.Username)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	auth.SetPendingUserCookie(w, created.ID, h.config.CookieSecure)
	writeJSON(w, http.StatusCreated, toUserResponse(created))
}

// UpdateProfile は自己紹介を更新する。
// PUT /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.service.UpdateProfile(r.Context(), userID, req.Bio); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTimeIntervals は受付時間帯を置き換える。
// POST /users/time-intervals
func (h *UserHandler) SetTimeIntervals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req timeIntervalsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	intervals, err := h.service.SetTimeIntervals(r.Context(), userID, req.Intervals)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTimeIntervalResponses(intervals))
}

// TimeIntervals は受付時間帯の一覧を返す。
// GET /users/time-intervals
func (h *UserHandler) TimeIntervals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	intervals, err := h.service.TimeIntervals(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTimeIntervalResponses(intervals))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	auth.ClearSessionCookie(w, h.config.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
