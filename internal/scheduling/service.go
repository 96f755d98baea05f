// Package scheduling は訪問者による予約の確定処理を提供する。
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/calendar"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
	"github.com/hitoshi/ignitecall/internal/security"
)

const (
	minNameLength       = 3
	maxObservationRunes = 1000
	eventDuration       = time.Hour
)

// UserFinder はユーザー名でユーザーを取得するインターフェース。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// IntervalFinder は曜日の受付時間帯を取得するインターフェース。
type IntervalFinder interface {
	FindByUserAndWeekDay(ctx context.Context, userID string, weekDay int) (*model.TimeInterval, error)
}

// SchedulingCreator は予約の保存インターフェース。
type SchedulingCreator interface {
	Create(ctx context.Context, scheduling *model.Scheduling) error
}

// EventCreator はカレンダーイベントの作成インターフェース。
type EventCreator interface {
	CreateEvent(ctx context.Context, hostUserID string, ev calendar.Event) (string, error)
}

// EventRecorder はカレンダーイベント作成の成否を記録する。
type EventRecorder interface {
	RecordCalendarEvent(success bool)
}

// Request は予約リクエスト。
type Request struct {
	Name         string
	Email        string
	Observations string
	Date         time.Time
}

// Service は予約の確定処理を行う。
type Service struct {
	users       UserFinder
	intervals   IntervalFinder
	schedulings SchedulingCreator
	events      EventCreator
	sanitizer   security.TextSanitizer
	location    *time.Location
	recorder    EventRecorder
	now         func() time.Time
}

// NewService はServiceを生成する。eventsがnilの場合はカレンダー連携を行わない。
func NewService(
	users UserFinder,
	intervals IntervalFinder,
	schedulings SchedulingCreator,
	events EventCreator,
	sanitizer security.TextSanitizer,
	location *time.Location,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		users:       users,
		intervals:   intervals,
		schedulings: schedulings,
		events:      events,
		sanitizer:   sanitizer,
		location:    location,
		now:         time.Now,
	}
}

// SetRecorder はカレンダーイベント作成結果の記録先を設定する。
func (s *Service) SetRecorder(recorder EventRecorder) {
	s.recorder = recorder
}

func (s *Service) validate(req *Request) error {
	req.Name = strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(req.Name) < minNameLength {
		return model.NewInvalidScheduleError("o nome precisa ter pelo menos 3 letras")
	}

	req.Email = strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return model.NewInvalidScheduleError("e-mail inválido")
	}

	req.Observations = s.sanitizer.Sanitize(req.Observations)
	if utf8.RuneCountInString(req.Observations) > maxObservationRunes {
		return model.NewInvalidScheduleError("observações muito longas")
	}

	if req.Date.IsZero() {
		return model.NewInvalidScheduleError("data não informada")
	}
	return nil
}

// startOfHour は時刻をサービスのタイムゾーンで正時に切り捨てる。
func (s *Service) startOfHour(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.location)
}

// withinInterval は予約時刻が空き時間として提示される枠のいずれかかを判定する。
func (s *Service) withinInterval(ctx context.Context, userID string, date time.Time) (bool, error) {
	local := date.In(s.location)
	interval, err := s.intervals.FindByUserAndWeekDay(ctx, userID, int(local.Weekday()))
	if err != nil {
		return false, fmt.Errorf("failed to find time interval: %w", err)
	}
	if interval == nil {
		return false, nil
	}
	return interval.HasHour(local.Hour()), nil
}

// Schedule はホストの予約を確定する。
// 予約時刻は正時に切り捨てる。カレンダーイベントの作成に失敗しても予約は取り消さない。
func (s *Service) Schedule(ctx context.Context, username string, req Request) (*model.Scheduling, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.validate(&req); err != nil {
		return nil, err
	}

	date := s.startOfHour(req.Date)
	if date.Before(s.now()) {
		return nil, model.NewDateInPastError()
	}

	ok, err := s.withinInterval(ctx, user.ID, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidScheduleError("horário fora da disponibilidade")
	}

	scheduling := &model.Scheduling{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Date:         date,
		Name:         req.Name,
		Email:        req.Email,
		Observations: req.Observations,
	}
	if err := s.schedulings.Create(ctx, scheduling); err != nil {
		if errors.Is(err, repository.ErrSchedulingConflict) {
			return nil, model.NewTimeConflictError()
		}
		return nil, fmt.Errorf("failed to create scheduling: %w", err)
	}

	slog.Info("予約を作成しました",
		slog.String("scheduling_id", scheduling.ID),
		slog.String("user_id", user.ID),
		slog.Time("date", date),
	)

	if s.events != nil {
		s.createEvent(ctx, user, scheduling)
	}

	return scheduling, nil
}

func (s *Service) createEvent(ctx context.Context, host *model.User, scheduling *model.Scheduling) {
	eventID, err := s.events.CreateEvent(ctx, host.ID, calendar.Event{
		Summary:       "Ignite Call: " + scheduling.Name,
		Description:   scheduling.Observations,
		Start:         scheduling.Date,
		End:           scheduling.Date.Add(eventDuration),
		AttendeeName:  scheduling.Name,
		AttendeeEmail: scheduling.Email,
	})
	if err != nil {
		slog.Error("カレンダーイベントの作成に失敗しました",
			slog.String("scheduling_id", scheduling.ID),
			slog.String("user_id", host.ID),
			slog.String("error", err.Error()),
		)
		s.recordEvent(false)
		return
	}
	s.recordEvent(true)
	slog.Info("カレンダーイベントを作成しました",
		slog.String("scheduling_id", scheduling.ID),
		slog.String("event_id", eventID),
	)
}

func (s *Service) recordEvent(success bool) {
	if s.recorder != nil {
		s.recorder.RecordCalendarEvent(success)
	}
}
