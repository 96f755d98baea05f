// Package web はサーバーレンダリングするページのテンプレート、文言カタログ、ビューモデルを提供する。
package web

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Language はUIの表示言語。
var Language = language.MustParse("pt-BR")

// Localizer はキーから翻訳済み文字列を得るインターフェース。
// *message.Printerが満たす。
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// NewPrinter はUI言語のPrinterを生成する。
func NewPrinter() *message.Printer {
	return message.NewPrinter(Language)
}

// WeekdayName は曜日の名前を返す（例: "segunda-feira"）。
func WeekdayName(loc Localizer, wd time.Weekday) string {
	return loc.Sprintf(fmt.Sprintf("weekday.%d", int(wd)))
}

// ShortWeekdayName は曜日の略称を返す（例: "SEG."）。
func ShortWeekdayName(loc Localizer, wd time.Weekday) string {
	return loc.Sprintf(fmt.Sprintf("weekday.short.%d", int(wd)))
}

// MonthName は月の名前を返す（例: "janeiro"）。
func MonthName(loc Localizer, m time.Month) string {
	return loc.Sprintf(fmt.Sprintf("month.%d", int(m)))
}

// FormatDayMonth は日付を"DD de MMMM"形式で返す（例: "07 de janeiro"）。
func FormatDayMonth(loc Localizer, t time.Time) string {
	return loc.Sprintf("date.day_month", t.Day(), MonthName(loc, t.Month()))
}

// FormatHour は時刻ラベルを"HH:00h"形式で返す。
func FormatHour(loc Localizer, hour int) string {
	return loc.Sprintf("time.hour", hour)
}
