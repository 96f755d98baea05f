// Package availability は予約ページに表示する空き時間と予約不可日を計算する。
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// UserFinder はユーザー名でユーザーを取得するインターフェース。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// IntervalReader は受付時間帯の読み取りインターフェース。
type IntervalReader interface {
	ListByUserID(ctx context.Context, userID string) ([]model.TimeInterval, error)
	FindByUserAndWeekDay(ctx context.Context, userID string, weekDay int) (*model.TimeInterval, error)
}

// SchedulingLister は期間内の予約を取得するインターフェース。
type SchedulingLister interface {
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Scheduling, error)
}

// Service は空き時間の計算を行う。日付の境界はlocationで判定する。
type Service struct {
	users       UserFinder
	intervals   IntervalReader
	schedulings SchedulingLister
	location    *time.Location
	now         func() time.Time
}

// NewService はServiceを生成する。locationがnilの場合はUTCを使う。
func NewService(users UserFinder, intervals IntervalReader, schedulings SchedulingLister, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		users:       users,
		intervals:   intervals,
		schedulings: schedulings,
		location:    location,
		now:         time.Now,
	}
}

// Location は日付計算に使うタイムゾーンを返す。
func (s *Service) Location() *time.Location {
	return s.location
}

// ParseDate はYYYY-MM-DD形式の日付をサービスのタイムゾーンの0時として解釈する。
func (s *Service) ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, model.NewInvalidDateError(value)
	}
	date, err := time.ParseInLocation("2006-01-02", value, s.location)
	if err != nil {
		return time.Time{}, model.NewInvalidDateError(value)
	}
	return date, nil
}

func (s *Service) findUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func (s *Service) startOfDay(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}

// PossibleHours は受付時間帯に含まれる正時の一覧を返す。終了時刻の時は含まない。
// 予約の確定も同じ規則（model.TimeInterval.HasHour）で判定する。
func PossibleHours(interval model.TimeInterval) []int {
	return interval.Hours()
}

// Availability は指定日の予約可能時間を返す。
// 過去日や受付時間帯のない曜日は両方とも空の一覧になる。
func (s *Service) Availability(ctx context.Context, username string, date time.Time) (*model.Availability, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	empty := &model.Availability{PossibleTimes: []int{}, AvailableTimes: []int{}}

	now := s.now().In(s.location)
	day := s.startOfDay(date)
	if day.Before(s.startOfDay(now)) {
		return empty, nil
	}

	interval, err := s.intervals.FindByUserAndWeekDay(ctx, user.ID, int(day.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("failed to find time interval: %w", err)
	}
	if interval == nil {
		return empty, nil
	}

	booked, err := s.schedulings.ListByUserBetween(ctx, user.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedulings: %w", err)
	}
	bookedHours := make(map[int]bool, len(booked))
	for _, b := range booked {
		bookedHours[b.Date.In(s.location).Hour()] = true
	}

	possible := PossibleHours(*interval)
	available := make([]int, 0, len(possible))
	for _, h := range possible {
		slot := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, s.location)
		if bookedHours[h] || !slot.After(now) {
			continue
		}
		available = append(available, h)
	}

	return &model.Availability{PossibleTimes: possible, AvailableTimes: available}, nil
}

// BlockedDates は指定月の予約不可の曜日と日付を返す。
// 予約数が受付可能な枠数に達した日を予約不可とする。
func (s *Service) BlockedDates(ctx context.Context, username string, year int, month time.Month) (*model.BlockedDates, error) {
	if month < time.January || month > time.December {
		return nil, model.NewInvalidDateError(fmt.Sprintf("%d-%d", year, month))
	}

	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	intervals, err := s.intervals.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time intervals: %w", err)
	}

	slotsByWeekDay := make(map[int]int, len(intervals))
	for _, ti := range intervals {
		slotsByWeekDay[ti.WeekDay] += len(PossibleHours(ti))
	}

	blockedWeekDays := []int{}
	for wd := 0; wd <= 6; wd++ {
		if _, ok := slotsByWeekDay[wd]; !ok {
			blockedWeekDays = append(blockedWeekDays, wd)
		}
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, s.location)
	monthEnd := monthStart.AddDate(0, 1, 0)
	booked, err := s.schedulings.ListByUserBetween(ctx, user.ID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedulings: %w", err)
	}

	countByDay := make(map[int]int)
	for _, b := range booked {
		countByDay[b.Date.In(s.location).Day()]++
	}

	blockedDates := []int{}
	for day, count := range countByDay {
		weekDay := int(time.Date(year, month, day, 0, 0, 0, 0, s.location).Weekday())
		if slots, ok := slotsByWeekDay[weekDay]; ok && count >= slots {
			blockedDates = append(blockedDates, day)
		}
	}
	sort.Ints(blockedDates)

	return &model.BlockedDates{BlockedWeekDays: blockedWeekDays, BlockedDates: blockedDates}, nil
}
