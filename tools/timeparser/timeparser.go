package timeparser

import (
	"fmt"
	"time"
)

// Layouts accepted for reading timestamps. Layouts without a zone are
// interpreted in the location passed to ParseReadingTimestamp.
var layouts = []string{
	time.RFC3339Nano,      // Standard RFC3339, fractional seconds optional
	"2006-01-02 15:04:05", // YYYY-MM-DD HH:mm:ss (meter gateway export)
	"2006-01-02T15:04:05", // RFC3339 without zone
	"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
}

// ParseReadingTimestamp attempts to parse a reading timestamp with multiple formats
func ParseReadingTimestamp(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, dateStr, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// IsWithinTolerance checks if the reading timestamp is within tolerance of received time
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}
