package indicator

import (
	"math"

	"StockPulse/internal/domain/models"
)

// DefaultPadding is the share of the value span added on both ends of a range.
const DefaultPadding = 0.1

// Config selects indicator parameters. Zero values fall back to defaults.
type Config struct {
	MACDParams []int `json:"macdParams"`
	RSIPeriod  int   `json:"rsiPeriod"`
	KDJParams  []int `json:"kdjParams"`
}

// DefaultConfig is MACD(12,26,9), RSI(14), KDJ(9,3,3).
func DefaultConfig() Config {
	return Config{
		MACDParams: []int{12, 26, 9},
		RSIPeriod:  14,
		KDJParams:  []int{9, 3, 3},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.MACDParams) != 3 {
		c.MACDParams = def.MACDParams
	}
	if c.RSIPeriod == 0 {
		c.RSIPeriod = def.RSIPeriod
	}
	if len(c.KDJParams) != 3 {
		c.KDJParams = def.KDJParams
	}
	return c
}

// CalculateAll computes every indicator over data.
func CalculateAll(data []models.Candle, cfg Config) models.IndicatorBundle {
	cfg = cfg.withDefaults()
	return models.IndicatorBundle{
		MA:   MovingAverages(data),
		MACD: MACD(data, cfg.MACDParams[0], cfg.MACDParams[1], cfg.MACDParams[2]),
		RSI:  RSI(data, cfg.RSIPeriod),
		KDJ:  KDJ(data, cfg.KDJParams[0], cfg.KDJParams[1], cfg.KDJParams[2]),
	}
}

// ValueRange returns the padded min/max of the defined values across series.
// With nothing defined the range is 0..100; a flat set is widened by 1.
func ValueRange(padding float64, series ...models.Series) models.ValueRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if !v.Valid || math.IsNaN(v.Float64) {
				continue
			}
			lo = math.Min(lo, v.Float64)
			hi = math.Max(hi, v.Float64)
		}
	}
	if math.IsInf(lo, 1) {
		return models.ValueRange{Min: 0, Max: 100}
	}
	if lo == hi {
		lo--
		hi++
	}
	pad := (hi - lo) * padding
	return models.ValueRange{Min: lo - pad, Max: hi + pad}
}
