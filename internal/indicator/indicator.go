// Package indicator holds the pure technical-indicator math shared by the
// live signal generator and the trend classifier.
package indicator

import "math"

// SMA returns the simple moving average series of closes over a trailing
// window of period values. Entries before period-1 data points exist are NaN,
// mirroring how a rolling mean over a short series is undefined.
func SMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RSI returns the relative strength index at the latest step, computed over
// the last period price deltas. Average gain and loss are plain trailing
// means, not Wilder's smoothing: the historical parameter sweeps were run
// with the rolling-mean form, and the live signal must reproduce them
// exactly.
//
// ok is false until period deltas exist. A window with zero losses yields
// exactly 100.
func RSI(closes []float64, period int) (rsi float64, ok bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}

	if loss == 0 {
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}
