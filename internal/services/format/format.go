// Package format renders numbers as display strings for quote boards and
// charts. All functions are total; unusable input renders as Placeholder.
package format

import (
	"math"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for missing values.
const Placeholder = "--"

var (
	tenThousand    = decimal.NewFromInt(10_000)
	hundredMillion = decimal.NewFromInt(100_000_000)
)

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Percent renders 1.234 as "+1.23%" and -2.5 as "-2.50%".
func Percent(p float64) string {
	if !finite(p) {
		return Placeholder
	}
	s := decimal.NewFromFloat(p).StringFixed(2) + "%"
	if p > 0 {
		return "+" + s
	}
	return s
}

// Price renders p with the given number of decimals.
func Price(p float64, decimals int) string {
	if !finite(p) {
		return Placeholder
	}
	return decimal.NewFromFloat(p).StringFixed(int32(max(decimals, 0)))
}

// Volume scales by 万 (1e4) and 亿 (1e8) with one decimal. Zero renders as
// Placeholder since the feed reports 0 for suspended stocks.
func Volume(v float64) string {
	if v == 0 || !finite(v) {
		return Placeholder
	}
	d := decimal.NewFromFloat(v)
	switch {
	case v >= 1e8:
		return d.Div(hundredMillion).StringFixed(1) + "亿"
	case v >= 1e4:
		return d.Div(tenThousand).StringFixed(1) + "万"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Value renders an indicator point, null as Placeholder.
func Value(v null.Float, decimals int) string {
	if !v.Valid {
		return Placeholder
	}
	return Price(v.Float64, decimals)
}
