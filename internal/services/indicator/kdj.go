package indicator

import "StockPulse/internal/domain/models"

const kdjSeed = 50.0

// KDJ is the stochastic oscillator with K and D smoothed by m1 and m2.
// A flat window (high == low) gives RSV 50.
func KDJ(data []models.Candle, n, m1, m2 int) models.KDJ {
	res := models.KDJ{K: nulls(len(data)), D: nulls(len(data)), J: nulls(len(data))}
	if n < 1 || m1 < 1 || m2 < 1 {
		return res
	}
	prevK, prevD := kdjSeed, kdjSeed
	for i := n - 1; i < len(data); i++ {
		highest, lowest := data[i].High, data[i].Low
		for j := i - n + 1; j < i; j++ {
			highest = max(highest, data[j].High)
			lowest = min(lowest, data[j].Low)
		}
		rsv := kdjSeed
		if highest != lowest {
			rsv = (data[i].Close - lowest) / (highest - lowest) * 100
		}
		k := (float64(m1-1)*prevK + rsv) / float64(m1)
		d := (float64(m2-1)*prevD + k) / float64(m2)
		res.K[i] = value(k)
		res.D[i] = value(d)
		res.J[i] = value(3*k - 2*d)
		prevK, prevD = k, d
	}
	return res
}
