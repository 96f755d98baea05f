package web

// HomeView はランディングページのデータ。
type HomeView struct {
	Username string
}

// RegisterView はユーザー名確保フォームのデータ。
type RegisterView struct {
	Username string
	Name     string
	Error    string
}

// ConnectCalendarView はカレンダー接続ステップのデータ。
type ConnectCalendarView struct {
	Connected       bool
	PermissionError bool
	Pending         bool
}

// ProfileView は予約ページに表示するホストのプロフィール。
type ProfileView struct {
	Username  string
	Name      string
	Bio       string
	AvatarURL string
}

// ScheduleView は予約ページ（カレンダーと時刻選択）のデータ。
type ScheduleView struct {
	Profile  ProfileView
	Calendar CalendarMonth
	Picker   *TimePicker
	Success  bool
}

// ConfirmView は予約確認フォームのデータ。
type ConfirmView struct {
	Profile      ProfileView
	DateTime     string // RFC3339
	DayLabel     string
	HourLabel    string
	Name         string
	Email        string
	Observations string
	Error        string
}

// ErrorView はエラーページのデータ。
type ErrorView struct {
	Message string
	Action  string
}
