// Package dates computes the UTC bucket keys used by snapshot entities.
package dates

import "strconv"

const (
	SecondsPerDay  uint64 = 86400
	SecondsPerHour uint64 = 3600
)

// DayStart returns the start of the UTC day containing ts.
func DayStart(ts uint64) uint64 {
	return ts / SecondsPerDay * SecondsPerDay
}

// HourStart returns the start of the UTC hour containing ts.
func HourStart(ts uint64) uint64 {
	return ts / SecondsPerHour * SecondsPerHour
}

// DayFromTimestamp returns the day bucket of ts as a decimal string.
func DayFromTimestamp(ts uint64) string {
	return strconv.FormatUint(DayStart(ts), 10)
}

// HourFromTimestamp returns the hour bucket of ts as a decimal string.
func HourFromTimestamp(ts uint64) string {
	return strconv.FormatUint(HourStart(ts), 10)
}
