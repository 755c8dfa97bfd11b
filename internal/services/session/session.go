// Package session decides whether the A-share market is trading, judged from
// the update timestamp the quote feed embeds in every snapshot.
package session

import (
	"time"
)

const (
	morningOpen    = 9*60 + 30
	morningClose   = 11*60 + 30
	afternoonOpen  = 13 * 60
	afternoonClose = 15 * 60

	// StaleAfter marks a feed timestamp older than this as a closed market.
	StaleAfter = 5 * time.Minute
)

// CST is China Standard Time. A fixed zone avoids depending on tzdata.
var CST = time.FixedZone("CST", 8*60*60)

// Classifier evaluates feed timestamps against a clock.
type Classifier struct {
	Now      func() time.Time
	Location *time.Location
}

// New returns a Classifier on the wall clock in CST.
func New() *Classifier {
	return &Classifier{Now: time.Now, Location: CST}
}

var std = New()

// IsClosed reports whether the market is closed according to ts, a
// 14-digit YYYYMMDDHHMMSS string, using the wall clock.
func IsClosed(ts string) bool { return std.IsClosed(ts) }

// IsClosed is fail-safe: anything that cannot be parsed counts as closed.
func (c *Classifier) IsClosed(ts string) bool {
	at, ok := c.Parse(ts)
	if !ok {
		return true
	}
	elapsed := c.now().Sub(at)
	if int64(elapsed/time.Minute) > int64(StaleAfter/time.Minute) {
		return true
	}
	return !InSession(at)
}

// Parse reads a 14-digit timestamp; non-digit characters are ignored.
func (c *Classifier) Parse(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	digits := make([]byte, 0, 14)
	for i := 0; i < len(ts); i++ {
		if ts[i] >= '0' && ts[i] <= '9' {
			digits = append(digits, ts[i])
		}
	}
	if len(digits) != 14 {
		return time.Time{}, false
	}
	year := atoi(digits[0:4])
	month := atoi(digits[4:6])
	day := atoi(digits[6:8])
	hour := atoi(digits[8:10])
	minute := atoi(digits[10:12])
	second := atoi(digits[12:14])

	switch {
	case year < 2020 || year > 2030,
		month < 1 || month > 12,
		day < 1 || day > 31,
		hour > 23, minute > 59, second > 59:
		return time.Time{}, false
	}

	at := time.Date(year, time.Month(month), day, hour, minute, second, 0, c.location())
	// time.Date normalizes overflow such as Feb 31; treat that as invalid.
	if at.Day() != day || int(at.Month()) != month {
		return time.Time{}, false
	}
	return at, true
}

// InSession reports whether t's wall-clock time falls in a trading window,
// both bounds inclusive.
func InSession(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return (m >= morningOpen && m <= morningClose) || (m >= afternoonOpen && m <= afternoonClose)
}

// OpenNow reports whether the wall clock is inside a trading window on a weekday.
func (c *Classifier) OpenNow() bool {
	now := c.now().In(c.location())
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return InSession(now)
}

func (c *Classifier) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Classifier) location() *time.Location {
	if c.Location == nil {
		return CST
	}
	return c.Location
}

func atoi(b []byte) int {
	n := 0
	for _, d := range b {
		n = n*10 + int(d-'0')
	}
	return n
}
