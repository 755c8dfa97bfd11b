package util

import (
	"time"
)

// tradeDateLayouts covers the date spellings of daily, weekly and minute klines.
var tradeDateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006-01-02 15:04",
	"200601021504",
	"2006-01-02 15:04:05",
}

// ParseTradeDate reads a kline date in loc.
func ParseTradeDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range tradeDateLayouts {
		if len(layout) != len(s) {
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTradeDate is the inverse of ParseTradeDate for daily bars.
func FormatTradeDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}
