package feed

import "fmt"

// Valid history windows and candle intervals accepted by the provider.
var (
	ValidPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "3y", "5y", "10y", "ytd", "max"}

	ValidIntervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
)

func ValidatePeriod(period string) error {
	for _, p := range ValidPeriods {
		if p == period {
			return nil
		}
	}
	return fmt.Errorf("invalid period %q, must be one of %v", period, ValidPeriods)
}

func ValidateInterval(interval string) error {
	for _, iv := range ValidIntervals {
		if iv == interval {
			return nil
		}
	}
	return fmt.Errorf("invalid interval %q, must be one of %v", interval, ValidIntervals)
}
