package codec

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// parseNumberOr reads the longest leading decimal number in text, the way the
// feed's producers format it ("10.12", " -3.5%", "1e3"). Anything without a
// numeric prefix, and any non-finite result, yields fallback.
func parseNumberOr(text string, fallback float64) float64 {
	s := strings.TrimLeft(text, " \t\r\n")
	end := numericPrefix(s)
	if end == 0 {
		return fallback
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// parseIntOr reads a leading integer and ignores any fractional tail, so
// "12345.000" is 12345.
func parseIntOr(text string, fallback int64) int64 {
	s := strings.TrimLeft(text, " \t\r\n")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return fallback
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// numericPrefix returns the length of the decimal literal at the start of s.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// field returns parts[i] or "" when the row is shorter.
func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// jsonNumber coerces a scalar JSON value; nested or non-numeric values are 0.
func jsonNumber(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			return 0
		}
		return r.Num
	case gjson.String:
		return parseNumberOr(r.Str, 0)
	default:
		return 0
	}
}

func jsonInt(r gjson.Result) int64 {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) || math.Abs(r.Num) >= math.MaxInt64 {
			return 0
		}
		return int64(r.Num)
	case gjson.String:
		return parseIntOr(r.Str, 0)
	default:
		return 0
	}
}
