package waiver

import (
	"fmt"
	"time"

	"cardledger/internal/model"
)

// Window is a date-granular aggregation window. Both ends are inclusive,
// matching the `transaction_date >= start AND transaction_date <= end`
// queries the repository runs.
type Window struct {
	Start time.Time
	End   time.Time
}

// PeriodWindow derives the aggregation window for a condition period.
// Yearly uses the calendar year of feeYear. Monthly and quarterly use the
// most recently completed period ending at or before the caller-supplied
// reference date (typically the card's fee due date) — never the wall clock.
func PeriodWindow(period string, feeYear int, ref time.Time) (Window, error) {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case model.PeriodYearly:
		return Window{
			Start: time.Date(feeYear, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(feeYear, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil

	case model.PeriodMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		if end.After(ref) {
			start = start.AddDate(0, -1, 0)
			end = start.AddDate(0, 1, -1)
		}
		return Window{Start: start, End: end}, nil

	case model.PeriodQuarterly:
		qStart := time.Month(((int(ref.Month())-1)/3)*3 + 1)
		start := time.Date(ref.Year(), qStart, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, -1)
		if end.After(ref) {
			start = start.AddDate(0, -3, 0)
			end = start.AddDate(0, 3, -1)
		}
		return Window{Start: start, End: end}, nil
	}

	return Window{}, fmt.Errorf("%w: unknown condition period %q", ErrRuleConfig, period)
}
