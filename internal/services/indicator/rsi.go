package indicator

import "StockPulse/internal/domain/models"

const rsNoLoss = 100.0

// RSI uses Wilder smoothing. Index 0 is null and the first value sits at
// index 1, right after it; every later smoothed value follows in order and
// the tail is padded with nulls up to len(data).
func RSI(data []models.Candle, period int) models.Series {
	out := nulls(len(data))
	if period < 1 || len(data) < 2 {
		return out
	}
	n := len(data) - 1
	if n < period {
		return out
	}
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < len(data); i++ {
		diff := data[i].Close - data[i-1].Close
		if diff > 0 {
			gains[i-1] = diff
		} else {
			losses[i-1] = -diff
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	pos := 1
	out[pos] = value(rsi(avgGain, avgLoss))
	for i := period; i < n; i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		pos++
		out[pos] = value(rsi(avgGain, avgLoss))
	}
	return out
}

func rsi(avgGain, avgLoss float64) float64 {
	rs := rsNoLoss
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}
