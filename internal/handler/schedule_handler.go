package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/scheduling"
)

// AvailabilityServiceInterface は空き時間の算出を行うサービスインターフェース。
type AvailabilityServiceInterface interface {
	Location() *time.Location
	ParseDate(value string) (time.Time, error)
	Availability(ctx context.Context, username string, date time.Time) (*model.Availability, error)
	BlockedDates(ctx context.Context, username string, year int, month time.Month) (*model.BlockedDates, error)
}

// SchedulingServiceInterface は予約を確定するサービスインターフェース。
type SchedulingServiceInterface interface {
	Schedule(ctx context.Context, username string, req scheduling.Request) (*model.Scheduling, error)
}

// ScheduleMetrics は公開APIの計測を記録する。
type ScheduleMetrics interface {
	RecordBooking(result string)
	RecordAvailabilityLookup(duration time.Duration)
}

// ScheduleHandler は訪問者向けの公開APIハンドラー。
type ScheduleHandler struct {
	availability AvailabilityServiceInterface
	scheduling   SchedulingServiceInterface
	metrics      ScheduleMetrics
}

// NewScheduleHandler はScheduleHandlerを生成する。recorderがnilの場合は記録しない。
func NewScheduleHandler(availability AvailabilityServiceInterface, scheduling SchedulingServiceInterface, recorder ScheduleMetrics) *ScheduleHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ScheduleHandler{
		availability: availability,
		scheduling:   scheduling,
		metrics:      recorder,
	}
}

type scheduleRequest struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Observations string    `json:"observations"`
	Date         time.Time `json:"date"`
}

// Availability は指定日の予約可能時間を返す。
// GET /users/{username}/availability?date=YYYY-MM-DD
func (h *ScheduleHandler) Availability(w http.ResponseWriter, r *http.Request) {
	username := usernameParam(r)

	date, err := h.availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	start := time.Now()
	result, err := h.availability.Availability(r.Context(), username, date)
	h.metrics.RecordAvailabilityLookup(time.Since(start))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BlockedDates は指定月の予約不可の曜日と日付を返す。
// GET /users/{username}/blocked-dates?year=YYYY&month=MM
func (h *ScheduleHandler) BlockedDates(w http.ResponseWriter, r *http.Request) {
	username := usernameParam(r)
	query := r.URL.Query()

	year, yearErr := strconv.Atoi(query.Get("year"))
	month, monthErr := strconv.Atoi(query.Get("month"))
	if yearErr != nil || monthErr != nil {
		handleServiceError(w, r, model.NewInvalidDateError(query.Get("year")+"-"+query.Get("month")))
		return
	}

	result, err := h.availability.BlockedDates(r.Context(), username, year, time.Month(month))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Schedule は予約を確定する。
// POST /users/{username}/schedule
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	username := usernameParam(r)

	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.RecordBooking(metrics.BookingResultRejected)
		handleServiceError(w, r, err)
		return
	}

	created, err := h.scheduling.Schedule(r.Context(), username, scheduling.Request{
		Name:         req.Name,
		Email:        req.Email,
		Observations: req.Observations,
		Date:         req.Date,
	})
	if err != nil {
		h.metrics.RecordBooking(bookingResult(err))
		handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordBooking(metrics.BookingResultCreated)
	writeJSON(w, http.StatusCreated, toSchedulingResponse(created, h.availability.Location()))
}

// bookingResult は予約失敗のエラーをメトリクスのラベルに変換する。
func bookingResult(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return metrics.BookingResultError
	}
	if apiErr.Code == model.ErrCodeTimeConflict {
		return metrics.BookingResultConflict
	}
	return metrics.BookingResultRejected
}
