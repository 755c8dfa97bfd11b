// Package indicator computes technical indicator series over candle
// sequences. Every series has the same length as its input; positions
// without enough history are null, never 0.
package indicator

import (
	"github.com/guregu/null/v6"

	"StockPulse/internal/domain/models"
)

func nulls(n int) models.Series { return make(models.Series, n) }

func value(v float64) null.Float { return null.FloatFrom(v) }

// SMA is the simple moving average of close over a trailing window.
func SMA(data []models.Candle, period int) models.Series {
	out := nulls(len(data))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(data); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += data[j].Close
		}
		out[i] = value(sum / float64(period))
	}
	return out
}

// EMA is seeded at index 0 with the mean close of the first period candles
// (or all of them when shorter), then smoothed with k = 2/(period+1).
// MACD depends on this seeding index for index.
func EMA(data []models.Candle, period int) models.Series {
	out := nulls(len(data))
	if period < 1 || len(data) == 0 {
		return out
	}
	raw := ema(data, period)
	for i, v := range raw {
		out[i] = value(v)
	}
	return out
}

func ema(data []models.Candle, period int) []float64 {
	seedLen := min(period, len(data))
	sum := 0.0
	for _, c := range data[:seedLen] {
		sum += c.Close
	}
	k := 2 / float64(period+1)
	out := make([]float64, len(data))
	out[0] = sum / float64(seedLen)
	for i := 1; i < len(data); i++ {
		out[i] = data[i].Close*k + out[i-1]*(1-k)
	}
	return out
}

// MovingAverages returns the 5, 10 and 30 period SMAs.
func MovingAverages(data []models.Candle) models.MovingAverages {
	return models.MovingAverages{
		MA5:  SMA(data, 5),
		MA10: SMA(data, 10),
		MA30: SMA(data, 30),
	}
}
