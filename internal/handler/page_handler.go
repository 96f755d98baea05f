package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/scheduling"
	"github.com/hitoshi/ignitecall/internal/web"
)

// PageRenderer はページテンプレートを描画する。web.Rendererが満たす。
type PageRenderer interface {
	Render(w io.Writer, name string, page web.Page) error
}

// PageHandlerConfig はページハンドラーの設定。
type PageHandlerConfig struct {
	CookieSecure bool
}

// PageHandler はサーバーサイドレンダリングのページハンドラー。
type PageHandler struct {
	renderer     PageRenderer
	localizer    web.Localizer
	users        UserServiceInterface
	availability AvailabilityServiceInterface
	scheduling   SchedulingServiceInterface
	metrics      ScheduleMetrics
	config       PageHandlerConfig
	now          func() time.Time
}

// NewPageHandler はPageHandlerを生成する。recorderがnilの場合は記録しない。
func NewPageHandler(
	renderer PageRenderer,
	localizer web.Localizer,
	users UserServiceInterface,
	availability AvailabilityServiceInterface,
	scheduling SchedulingServiceInterface,
	recorder ScheduleMetrics,
	config PageHandlerConfig,
) *PageHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PageHandler{
		renderer:     renderer,
		localizer:    localizer,
		users:        users,
		availability: availability,
		scheduling:   scheduling,
		metrics:      recorder,
		config:       config,
		now:          time.Now,
	}
}

// Home はランディングページを表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageHome, web.Page{
		Title:       h.localizer.Sprintf("home.title"),
		Description: h.localizer.Sprintf("home.description"),
		Data:        web.HomeView{Username: r.URL.Query().Get("username")},
	})
}

// RegisterForm はユーザー名確保フォームを表示する。
// GET /register?username=
func (h *PageHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, web.RegisterView{
		Username: r.URL.Query().Get("username"),
	})
}

// Register はユーザー名を確保し、カレンダー接続ステップへ進める。
// POST /register
func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	view := web.RegisterView{
		Username: r.PostFormValue("username"),
		Name:     r.PostFormValue("name"),
	}

	created, err := h.users.Register(r.Context(), view.Name, view.Username)
	if err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			h.renderInternalError(w, r, err)
			return
		}
		view.Error = apiErr.Message
		h.renderRegister(w, r, middleware.StatusForAPIError(apiErr), view)
		return
	}

	auth.SetPendingUserCookie(w, created.ID, h.config.CookieSecure)
	http.Redirect(w, r, connectCalendarPath, http.StatusSeeOther)
}

func (h *PageHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, view web.RegisterView) {
	h.render(w, r, status, web.PageRegister, web.Page{
		Title: h.localizer.Sprintf("register.title"),
		Data:  view,
	})
}

// ConnectCalendar はカレンダー接続ステップを表示する。
// GET /register/connect-calendar?error=permissions
func (h *PageHandler) ConnectCalendar(w http.ResponseWriter, r *http.Request) {
	_, connected := middleware.SessionFromContext(r.Context())
	h.render(w, r, http.StatusOK, web.PageConnectCalendar, web.Page{
		Title: h.localizer.Sprintf("connect.title"),
		Data: web.ConnectCalendarView{
			Connected:       connected,
			PermissionError: r.URL.Query().Get("error") == "permissions",
			Pending:         !connected && auth.PendingUserID(r) == "",
		},
	})
}

// Schedule はホストの予約カレンダーを表示する。?dateで時刻選択を開く。
// GET /schedule/{username}?month=YYYY-MM&date=YYYY-MM-DD
func (h *PageHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	host, ok := h.findHost(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	now := h.now().In(h.availability.Location())

	var selected time.Time
	if value := query.Get("date"); value != "" {
		date, err := h.availability.ParseDate(value)
		if err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		selected = date
	}

	monthValue := query.Get("month")
	if monthValue == "" && !selected.IsZero() {
		monthValue = selected.Format("2006-01")
	}
	month, err := web.ParseMonth(monthValue, now)
	if err != nil {
		h.renderServiceError(w, r, model.NewInvalidDateError(monthValue))
		return
	}

	blocked, err := h.availability.BlockedDates(r.Context(), host.Username, month.Year(), month.Month())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	view := web.ScheduleView{
		Profile:  toProfileView(host),
		Calendar: web.BuildMonth(h.localizer, month, now, *blocked, selected),
		Success:  query.Get("success") == "1",
	}

	if !selected.IsZero() {
		start := time.Now()
		availability, err := h.availability.Availability(r.Context(), host.Username, selected)
		h.metrics.RecordAvailabilityLookup(time.Since(start))
		if err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		picker := web.BuildTimePicker(h.localizer, selected, *availability)
		view.Picker = &picker
	}

	h.render(w, r, http.StatusOK, web.PageSchedule, web.Page{
		Title:       h.localizer.Sprintf("schedule.title", host.Name),
		Description: host.Bio,
		Data:        view,
	})
}

// ConfirmForm は予約確認フォームを表示する。
// GET /schedule/{username}/confirm?datetime=RFC3339
func (h *PageHandler) ConfirmForm(w http.ResponseWriter, r *http.Request) {
	host, ok := h.findHost(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("datetime")
	dateTime, err := h.parseDateTime(raw)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.renderConfirm(w, r, http.StatusOK, h.confirmView(host, dateTime))
}

// Confirm は予約を確定し、カレンダーへ戻す。
// POST /schedule/{username}/confirm
func (h *PageHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	host, ok := h.findHost(w, r)
	if !ok {
		return
	}

	dateTime, err := h.parseDateTime(r.PostFormValue("datetime"))
	if err != nil {
		h.metrics.RecordBooking(metrics.BookingResultRejected)
		h.renderServiceError(w, r, err)
		return
	}

	view := h.confirmView(host, dateTime)
	view.Name = r.PostFormValue("name")
	view.Email = r.PostFormValue("email")
	view.Observations = r.PostFormValue("observations")

	_, err = h.scheduling.Schedule(r.Context(), host.Username, scheduling.Request{
		Name:         view.Name,
		Email:        view.Email,
		Observations: view.Observations,
		Date:         dateTime,
	})
	if err != nil {
		h.metrics.RecordBooking(bookingResult(err))
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			h.renderInternalError(w, r, err)
			return
		}
		view.Error = apiErr.Message
		h.renderConfirm(w, r, middleware.StatusForAPIError(apiErr), view)
		return
	}

	h.metrics.RecordBooking(metrics.BookingResultCreated)
	http.Redirect(w, r, "/schedule/"+url.PathEscape(host.Username)+"?success=1", http.StatusSeeOther)
}

func (h *PageHandler) confirmView(host *model.User, dateTime time.Time) web.ConfirmView {
	return web.ConfirmView{
		Profile:   toProfileView(host),
		DateTime:  dateTime.Format(time.RFC3339),
		DayLabel:  web.FormatDayMonth(h.localizer, dateTime),
		HourLabel: web.FormatHour(h.localizer, dateTime.Hour()),
	}
}

func (h *PageHandler) renderConfirm(w http.ResponseWriter, r *http.Request, status int, view web.ConfirmView) {
	h.render(w, r, status, web.PageConfirm, web.Page{
		Title: h.localizer.Sprintf("confirm.title"),
		Data:  view,
	})
}

// parseDateTime はRFC3339の日時をサービスのタイムゾーンに変換する。
func (h *PageHandler) parseDateTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, model.NewInvalidDateError(value)
	}
	return t.In(h.availability.Location()), nil
}

// findHost はURLのユーザー名からホストを取得する。見つからなければ404ページを描画する。
func (h *PageHandler) findHost(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	host, err := h.users.FindByUsername(r.Context(), usernameParam(r))
	if err != nil {
		h.renderInternalError(w, r, err)
		return nil, false
	}
	if host == nil {
		h.renderServiceError(w, r, model.NewUserNotFoundError())
		return nil, false
	}
	return host, true
}

func toProfileView(u *model.User) web.ProfileView {
	return web.ProfileView{
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURLOrEmpty(),
	}
}

// renderServiceError はAPIErrorをエラーページとして描画する。それ以外は500ページ。
func (h *PageHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		h.renderInternalError(w, r, err)
		return
	}
	h.renderError(w, r, middleware.StatusForAPIError(apiErr), apiErr)
}

func (h *PageHandler) renderInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("failed to render page",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.renderError(w, r, http.StatusInternalServerError, middleware.InternalServerError())
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, status int, apiErr *model.APIError) {
	h.render(w, r, status, web.PageError, web.Page{
		Title: h.localizer.Sprintf("error.title"),
		Data: web.ErrorView{
			Message: apiErr.Message,
			Action:  apiErr.Action,
		},
	})
}

// render はページを描画する。テンプレートの失敗時は何も書き込まずに500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, page web.Page) {
	page.CSRFToken = middleware.CSRFTokenFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, page); err != nil {
		slog.Error("failed to execute template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write page", slog.String("error", err.Error()))
	}
}
