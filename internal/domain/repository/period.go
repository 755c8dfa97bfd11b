package repository

// Period is a kline resolution as the provider spells it.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return PeriodDay }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

const (
	DefaultCandleCount = 100
	MaxCandleCount     = 640
)

// ClampCount bounds a requested bar count to (0, MaxCandleCount].
func ClampCount(n int) int {
	if n <= 0 {
		return DefaultCandleCount
	}
	if n > MaxCandleCount {
		return MaxCandleCount
	}
	return n
}
