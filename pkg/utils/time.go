package utils

import (
	"fmt"
	"time"
)

// time.go - утилиты работы со временем
//
// Биржевые API передают временные метки в миллисекундах Unix-времени,
// внутри ядра используется time.Time в UTC.

// UnixMillis возвращает текущее время в миллисекундах Unix
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis преобразует миллисекунды Unix в time.Time (UTC)
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// UnixMicros возвращает текущее время в микросекундах Unix
func UnixMicros() int64 {
	return time.Now().UnixMicro()
}

// FromUnixMicros преобразует микросекунды Unix в time.Time (UTC)
func FromUnixMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// ToUTC нормализует время к UTC
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// FormatDuration форматирует длительность в человекочитаемый вид.
//
// Примеры:
//   - 90s  -> "1m30s"
//   - 3661s -> "1h1m"
//   - 26h  -> "1d2h"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	case d < 24*time.Hour:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	default:
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		if h == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, h)
	}
}
