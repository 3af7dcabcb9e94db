package billing

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for billing period dates. Periods are
// calendar dates with no time component.
const DateLayout = "2006-01-02"

// Period is an inclusive calendar date range
type Period struct {
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

// NewPeriod creates a period, truncating both bounds to UTC calendar dates.
// Returns ErrInvalidRange if start is after end.
func NewPeriod(start, end time.Time) (Period, error) {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if start.After(end) {
		return Period{}, ErrInvalidRange{Start: start, End: end}
	}
	return Period{Start: start, End: end}, nil
}

// ParsePeriod parses ISO calendar dates into a period
func ParsePeriod(start, end string) (Period, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period start %q: %w", start, err)
	}
	e, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period end %q: %w", end, err)
	}
	return NewPeriod(s, e)
}

// EndExclusive returns the first instant after the period, for range queries
// over timestamped entries.
func (p Period) EndExclusive() time.Time {
	return p.End.AddDate(0, 0, 1)
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
