package indicator

import "StockPulse/internal/domain/models"

// MACD computes DIF = EMA(fast) - EMA(slow), DEA as the signal smoothing of
// DIF seeded with DIF[0], and Histogram = (DIF - DEA) * 2.
func MACD(data []models.Candle, fast, slow, signal int) models.MACD {
	res := models.MACD{DIF: nulls(len(data)), DEA: nulls(len(data)), Histogram: nulls(len(data))}
	if fast < 1 || slow < 1 || signal < 1 || len(data) == 0 {
		return res
	}
	emaFast, emaSlow := ema(data, fast), ema(data, slow)
	k := 2 / float64(signal+1)
	var dea float64
	for i := range data {
		dif := emaFast[i] - emaSlow[i]
		if i == 0 {
			dea = dif
		} else {
			dea = dif*k + dea*(1-k)
		}
		res.DIF[i] = value(dif)
		res.DEA[i] = value(dea)
		res.Histogram[i] = value((dif - dea) * 2)
	}
	return res
}
