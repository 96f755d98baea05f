package web

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// CalendarDay はカレンダーの1日分のセル。
type CalendarDay struct {
	Date     time.Time
	Day      int
	Value    string // YYYY-MM-DD
	Disabled bool
	Outside  bool // 表示月の前後の日
	Selected bool
}

// CalendarMonth は月表示のカレンダー。
type CalendarMonth struct {
	Title     string
	Month     string // YYYY-MM
	PrevMonth string
	NextMonth string
	WeekDays  []string
	Weeks     [][]CalendarDay
}

// ParseMonth は"YYYY-MM"形式の月を解析する。空文字列の場合はnowの月を返す。
func ParseMonth(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01", value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse month %q: %w", value, err)
	}
	return t, nil
}

// BuildMonth はmonthを含む週単位のカレンダーを組み立てる。
// 今日より前の日、受付のない曜日、満席の日は選択不可になる。
func BuildMonth(loc Localizer, month, now time.Time, blocked model.BlockedDates, selected time.Time) CalendarMonth {
	tz := now.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, tz)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)

	blockedWeekDays := make(map[int]bool, len(blocked.BlockedWeekDays))
	for _, wd := range blocked.BlockedWeekDays {
		blockedWeekDays[wd] = true
	}
	blockedDays := make(map[int]bool, len(blocked.BlockedDates))
	for _, d := range blocked.BlockedDates {
		blockedDays[d] = true
	}

	cal := CalendarMonth{
		Title:     loc.Sprintf("date.month_year", MonthName(loc, first.Month()), strconv.Itoa(first.Year())),
		Month:     first.Format("2006-01"),
		PrevMonth: first.AddDate(0, -1, 0).Format("2006-01"),
		NextMonth: first.AddDate(0, 1, 0).Format("2006-01"),
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		cal.WeekDays = append(cal.WeekDays, ShortWeekdayName(loc, wd))
	}

	start := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	var week []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		outside := d.Month() != first.Month()
		disabled := outside || d.Before(today) ||
			blockedWeekDays[int(d.Weekday())] || blockedDays[d.Day()]
		day := CalendarDay{
			Date:     d,
			Day:      d.Day(),
			Value:    d.Format("2006-01-02"),
			Disabled: disabled,
			Outside:  outside,
		}
		if !selected.IsZero() && sameDay(d, selected.In(tz)) {
			day.Selected = true
		}
		week = append(week, day)
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = nil
		}
	}
	return cal
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
