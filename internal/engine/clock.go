package engine

import "time"

// Clock supplies commit timestamps.
//
// The engine never uses the clock for ordering: audit order comes from the
// store's sequence. The clock only stamps created_at and updated_at.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// commitTime returns now unless that would move updated_at backwards.
func commitTime(now, lastUpdate time.Time) time.Time {
	now = now.UTC()
	if now.Before(lastUpdate) {
		return lastUpdate.UTC()
	}
	return now
}
