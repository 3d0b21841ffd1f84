package usecase

import (
	"math"

	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/indicator"
)

const (
	// Longer-horizon MA used for the trend tag, independent of any
	// strategy's own periods.
	TrendMAPeriod = 50
	// How many candles back to compare the MA against when judging slope.
	TrendLookback = 5
)

// ClassifyTrend tags the series as uptrend, downtrend or sideways. Uptrend
// requires both the latest close above the MA and the MA rising over the
// lookback; downtrend is the negation of both, so a perfectly flat market
// counts as a downtrend. Only the two mixed cases collapse to sideways, as
// does a series too short to judge.
func ClassifyTrend(closes []float64, maPeriod, lookback int) domain.Trend {
	n := len(closes)
	if maPeriod <= 0 || lookback <= 0 || n < maPeriod+lookback {
		return domain.TrendSideways
	}

	ma := indicator.SMA(closes, maPeriod)
	latest := ma[n-1]
	earlier := ma[n-1-lookback]
	if math.IsNaN(latest) || math.IsNaN(earlier) {
		return domain.TrendSideways
	}

	priceAboveMA := closes[n-1] > latest
	maRising := latest > earlier

	switch {
	case priceAboveMA && maRising:
		return domain.TrendUp
	case !priceAboveMA && !maRising:
		return domain.TrendDown
	default:
		return domain.TrendSideways
	}
}
