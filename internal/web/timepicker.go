package web

import (
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// TimeSlot は時刻選択の1枠。
type TimeSlot struct {
	Hour     int
	Label    string // HH:00h
	Value    string // 選択時の日時（RFC3339、正時）
	Disabled bool
}

// TimePicker は選択日の時刻一覧。
type TimePicker struct {
	WeekDay  string
	DayMonth string
	Date     string // YYYY-MM-DD
	Slots    []TimeSlot
}

// BuildTimePicker は受付時間帯のすべての時刻を並べ、予約済みまたは過ぎた時刻を選択不可にする。
func BuildTimePicker(loc Localizer, date time.Time, availability model.Availability) TimePicker {
	picker := TimePicker{
		WeekDay:  WeekdayName(loc, date.Weekday()),
		DayMonth: FormatDayMonth(loc, date),
		Date:     date.Format("2006-01-02"),
		Slots:    make([]TimeSlot, 0, len(availability.PossibleTimes)),
	}
	for _, hour := range availability.PossibleTimes {
		picker.Slots = append(picker.Slots, TimeSlot{
			Hour:     hour,
			Label:    FormatHour(loc, hour),
			Value:    SlotTime(date, hour).Format(time.RFC3339),
			Disabled: !availability.IsAvailable(hour),
		})
	}
	return picker
}

// SlotTime は日付のhour時ちょうどの時刻を返す。
func SlotTime(date time.Time, hour int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
}
