package model

import "time"

// TimeInterval はユーザーが予約を受け付ける曜日ごとの時間帯を表す。
// 時刻は0時からの経過分で保持する。
type TimeInterval struct {
	ID                 string
	UserID             string
	WeekDay            int // 0=日曜 ... 6=土曜
	TimeStartInMinutes int
	TimeEndInMinutes   int
}

// Hours は時間帯に含まれる正時の一覧を返す。開始・終了の分は切り捨てて時単位で扱い、
// 終了時刻の時は含まない（9:30〜11:30 なら 9 と 10）。
func (i TimeInterval) Hours() []int {
	startHour := i.TimeStartInMinutes / 60
	endHour := i.TimeEndInMinutes / 60
	if endHour <= startHour {
		return []int{}
	}
	hours := make([]int, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// HasHour はhour時の枠がHoursに含まれるかを返す。
func (i TimeInterval) HasHour(hour int) bool {
	return hour >= i.TimeStartInMinutes/60 && hour < i.TimeEndInMinutes/60
}

// Scheduling は訪問者が確定した予約を表す。
// Dateは常に正時（分・秒がゼロ）に揃えられる。
type Scheduling struct {
	ID           string
	UserID       string
	Date         time.Time
	Name         string
	Email        string
	Observations string
	CreatedAt    time.Time
}

// Availability は指定日の予約可能時間を表す。
// PossibleTimesは受付時間帯に含まれる全時刻、AvailableTimesはそのうち空いている時刻。
type Availability struct {
	PossibleTimes  []int `json:"possibleTimes"`
	AvailableTimes []int `json:"availableTimes"`
}

// IsAvailable は指定した時刻が予約可能かどうかを返す。
func (a Availability) IsAvailable(hour int) bool {
	for _, h := range a.AvailableTimes {
		if h == hour {
			return true
		}
	}
	return false
}

// BlockedDates は指定月の予約不可能な曜日と日付を表す。
type BlockedDates struct {
	BlockedWeekDays []int `json:"blockedWeekDays"`
	BlockedDates    []int `json:"blockedDates"`
}
