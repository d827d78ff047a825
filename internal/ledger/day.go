package ledger

import "time"

const secondsPerDay = 24 * 60 * 60

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// DayOf buckets t into whole UTC days since the Unix epoch.
func DayOf(t time.Time) int64 {
	sec := t.Unix()
	day := sec / secondsPerDay
	if sec%secondsPerDay < 0 {
		day--
	}
	return day
}

// DayStart returns the first instant of the given day in UTC.
func DayStart(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}
