package googfit

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// TimeWindow is a pair of nanosecond epoch boundaries
type TimeWindow struct {
	Start int64 `json:"start_ns"`
	End   int64 `json:"end_ns"`

	loc *time.Location
}

// NewTimeWindow returns the window starting at midnight of `d` in `loc` and lasting 24 hours
func NewTimeWindow(d time.Time, loc *time.Location) TimeWindow {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return TimeWindow{
		Start: start.UnixNano(),
		End:   start.Add(day).UnixNano(),
		loc:   loc,
	}
}

// Day returns midnight of the calendar day the window starts on
func (w TimeWindow) Day() time.Time {
	loc := w.loc
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(0, w.Start).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// LoadLocation resolves an IANA timezone name, the empty string is UTC
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// GetNano interprets the wall clock of `dt` in `timezone` (UTC if empty) and
// returns the Unix epoch in nanoseconds. The location of `dt` is ignored.
func GetNano(dt time.Time, timezone string) (int64, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return 0, err
	}
	return localize(dt, loc).UnixNano(), nil
}

func localize(dt time.Time, loc *time.Location) time.Time {
	return time.Date(
		dt.Year(), dt.Month(), dt.Day(),
		dt.Hour(), dt.Minute(), dt.Second(), dt.Nanosecond(), loc)
}
