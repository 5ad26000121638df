package datasource

import "github.com/rxtech-lab/argo-backtest/pkg/errors"

var intervalMinutes = map[Interval]int{
	Interval1m:  1,
	Interval5m:  5,
	Interval15m: 15,
	Interval30m: 30,
	Interval1h:  60,
	Interval4h:  240,
	Interval6h:  360,
	Interval8h:  480,
	Interval12h: 720,
	Interval1d:  1440,
	Interval1w:  10080,
}

func getIntervalMinutes(interval Interval) (int, error) {
	minutes, ok := intervalMinutes[interval]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported interval: %q", interval)
	}

	return minutes, nil
}

// BarsPerYear returns how many bars of the interval fit in a 365-day year.
// Crypto trades around the clock, so no session calendar is applied.
func BarsPerYear(interval Interval) (int, error) {
	minutes, err := getIntervalMinutes(interval)
	if err != nil {
		return 0, err
	}

	return 365 * 24 * 60 / minutes, nil
}
