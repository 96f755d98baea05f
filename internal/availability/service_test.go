package availability

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// --- モック ---

type mockUserFinder struct {
	users map[string]*model.User
}

func (m *mockUserFinder) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.users[username], nil
}

type mockIntervalReader struct {
	intervals []model.TimeInterval
	err       error
}

func (m *mockIntervalReader) ListByUserID(ctx context.Context, userID string) ([]model.TimeInterval, error) {
	return m.intervals, m.err
}

func (m *mockIntervalReader) FindByUserAndWeekDay(ctx context.Context, userID string, weekDay int) (*model.TimeInterval, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, ti := range m.intervals {
		if ti.WeekDay == weekDay {
			found := ti
			return &found, nil
		}
	}
	return nil, nil
}

type mockSchedulingLister struct {
	schedulings []model.Scheduling
}

func (m *mockSchedulingLister) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Scheduling, error) {
	var result []model.Scheduling
	for _, s := range m.schedulings {
		if !s.Date.Before(from) && s.Date.Before(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

var saoPaulo = time.FixedZone("BRT", -3*60*60)

func newTestService(now time.Time, intervals []model.TimeInterval, schedulings []model.Scheduling) *Service {
	users := &mockUserFinder{users: map[string]*model.User{
		"diego": {ID: "user-1", Username: "diego", Name: "Diego"},
	}}
	svc := NewService(users, &mockIntervalReader{intervals: intervals}, &mockSchedulingLister{schedulings: schedulings}, saoPaulo)
	svc.now = func() time.Time { return now }
	return svc
}

// 2030-01-07は月曜日
var monday = model.TimeInterval{WeekDay: 1, TimeStartInMinutes: 8 * 60, TimeEndInMinutes: 12 * 60}

func TestPossibleHours(t *testing.T) {
	tests := []struct {
		name     string
		interval model.TimeInterval
		want     []int
	}{
		{"8時から12時", monday, []int{8, 9, 10, 11}},
		{"端数のある終了時刻", model.TimeInterval{TimeStartInMinutes: 9 * 60, TimeEndInMinutes: 10*60 + 30}, []int{9}},
		{"1時間ちょうど", model.TimeInterval{TimeStartInMinutes: 0, TimeEndInMinutes: 60}, []int{0}},
		{"端数のある開始時刻", model.TimeInterval{TimeStartInMinutes: 9*60 + 30, TimeEndInMinutes: 11*60 + 30}, []int{9, 10}},
		{"1時間に満たない", model.TimeInterval{TimeStartInMinutes: 9*60 + 15, TimeEndInMinutes: 9*60 + 50}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PossibleHours(tt.interval); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PossibleHours() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailability_ExcludesBookedHours(t *testing.T) {
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, saoPaulo)
	booked := []model.Scheduling{
		{Date: time.Date(2030, 1, 7, 9, 0, 0, 0, saoPaulo).UTC()},
		{Date: time.Date(2030, 1, 8, 10, 0, 0, 0, saoPaulo)}, // 別の日
	}
	svc := newTestService(now, []model.TimeInterval{monday}, booked)

	got, err := svc.Availability(context.Background(), "diego", time.Date(2030, 1, 7, 0, 0, 0, 0, saoPaulo))
	if err != nil {
		t.Fatalf("Availability() error = %v", err)
	}

	if !reflect.DeepEqual(got.PossibleTimes, []int{8, 9, 10, 11}) {
		t.Errorf("PossibleTimes = %v", got.PossibleTimes)
	}
	if !reflect.DeepEqual(got.AvailableTimes, []int{8, 10, 11}) {
		t.Errorf("AvailableTimes = %v, want [8 10 11]", got.AvailableTimes)
	}
	for _, h := range got.AvailableTimes {
		found := false
		for _, p := range got.PossibleTimes {
			if p == h {
				found = true
			}
		}
		if !found {
			t.Errorf("available hour %d is not in possible times", h)
		}
	}
}

func TestAvailability_TodayExcludesPastHours(t *testing.T) {
	now := time.Date(2030, 1, 7, 9, 30, 0, 0, saoPaulo)
	svc := newTestService(now, []model.TimeInterval{monday}, nil)

	got, err := svc.Availability(context.Background(), "diego", time.Date(2030, 1, 7, 0, 0, 0, 0, saoPaulo))
	if err != nil {
		t.Fatalf("Availability() error = %v", err)
	}
	if !reflect.DeepEqual(got.AvailableTimes, []int{10, 11}) {
		t.Errorf("AvailableTimes = %v, want [10 11]", got.AvailableTimes)
	}
}

func TestAvailability_EmptyCases(t *testing.T) {
	now := time.Date(2030, 1, 7, 9, 0, 0, 0, saoPaulo)
	svc := newTestService(now, []model.TimeInterval{monday}, nil)

	tests := []struct {
		name string
		date time.Time
	}{
		{"過去日", time.Date(2030, 1, 6, 0, 0, 0, 0, saoPaulo)},
		{"受付時間帯のない曜日", time.Date(2030, 1, 8, 0, 0, 0, 0, saoPaulo)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Availability(context.Background(), "diego", tt.date)
			if err != nil {
				t.Fatalf("Availability() error = %v", err)
			}
			if got.PossibleTimes == nil || got.AvailableTimes == nil {
				t.Error("lists must be empty, not nil")
			}
			if len(got.PossibleTimes) != 0 || len(got.AvailableTimes) != 0 {
				t.Errorf("Availability() = %+v, want empty", got)
			}
		})
	}
}

func TestAvailability_UserNotFound(t *testing.T) {
	svc := newTestService(time.Now(), nil, nil)

	_, err := svc.Availability(context.Background(), "ghost", time.Now())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Availability() error = %v, want USER_NOT_FOUND", err)
	}
}

func TestParseDate(t *testing.T) {
	svc := newTestService(time.Now(), nil, nil)

	got, err := svc.ParseDate("2030-01-07")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got.Location() != saoPaulo || got.Day() != 7 || got.Hour() != 0 {
		t.Errorf("ParseDate() = %v", got)
	}

	for _, bad := range []string{"", "07/01/2030", "2030-13-01"} {
		_, err := svc.ParseDate(bad)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidDate {
			t.Errorf("ParseDate(%q) error = %v, want INVALID_DATE", bad, err)
		}
	}
}

func TestBlockedDates(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, saoPaulo)
	twoSlots := model.TimeInterval{WeekDay: 1, TimeStartInMinutes: 10 * 60, TimeEndInMinutes: 12 * 60}
	booked := []model.Scheduling{
		// 1/7（月）は2枠とも予約済み
		{Date: time.Date(2030, 1, 7, 10, 0, 0, 0, saoPaulo)},
		{Date: time.Date(2030, 1, 7, 11, 0, 0, 0, saoPaulo)},
		// 1/14（月）は1枠のみ
		{Date: time.Date(2030, 1, 14, 10, 0, 0, 0, saoPaulo)},
		// 翌月
		{Date: time.Date(2030, 2, 4, 10, 0, 0, 0, saoPaulo)},
		{Date: time.Date(2030, 2, 4, 11, 0, 0, 0, saoPaulo)},
	}
	svc := newTestService(now, []model.TimeInterval{twoSlots}, booked)

	got, err := svc.BlockedDates(context.Background(), "diego", 2030, time.January)
	if err != nil {
		t.Fatalf("BlockedDates() error = %v", err)
	}
	if !reflect.DeepEqual(got.BlockedWeekDays, []int{0, 2, 3, 4, 5, 6}) {
		t.Errorf("BlockedWeekDays = %v", got.BlockedWeekDays)
	}
	if !reflect.DeepEqual(got.BlockedDates, []int{7}) {
		t.Errorf("BlockedDates = %v, want [7]", got.BlockedDates)
	}
}

func TestBlockedDates_InvalidMonth(t *testing.T) {
	svc := newTestService(time.Now(), nil, nil)
	if _, err := svc.BlockedDates(context.Background(), "diego", 2030, 13); err == nil {
		t.Fatal("expected error for invalid month")
	}
}
